package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/smart-schedule/cmd/mainconfig"
	"github.com/wolfman30/smart-schedule/internal/booking"
	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/internal/conversation"
	"github.com/wolfman30/smart-schedule/internal/observability/metrics"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// BuildLLMClient returns the client selected by LLM_PROVIDER. The returned
// close func is never nil.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		logger.Info("using gemini llm", "model", cfg.GeminiModelID)
		return client, client.Close, nil

	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, noop, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("using bedrock llm", "model", cfg.BedrockModelID, "region", cfg.AWSRegion)
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), noop, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// BuildChatService wires the booking resolver and the conversation
// orchestrator over repo. notifier may be nil.
func BuildChatService(cfg *appconfig.Config, llm conversation.LLMClient, repo schedule.Repository, history conversation.HistoryStore, chatMetrics *metrics.ChatMetrics, notifier booking.Notifier, logger *logging.Logger) *conversation.Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()

	opts := []booking.Option{
		booking.WithConflictWindow(cfg.ConflictWindow),
		booking.WithLocation(loc),
		booking.WithObserver(chatMetrics),
	}
	if notifier != nil {
		opts = append(opts, booking.WithNotifier(notifier))
	}
	resolver := booking.NewResolver(repo, logger.Component("booking"), opts...)

	return conversation.NewOrchestrator(llm, repo, resolver, history, logger.Component("conversation"),
		conversation.WithBusinessName(cfg.BusinessName),
		conversation.WithLocation(loc),
		conversation.WithLLMTimeout(cfg.LLMTimeout),
		conversation.WithGeneration(int32(cfg.LLMMaxOutputTokens), float32(cfg.LLMTemperature)),
		conversation.WithMaxHistory(cfg.MaxHistoryMessages),
		conversation.WithMetrics(chatMetrics),
	)
}

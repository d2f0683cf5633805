package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/smart-schedule/internal/booking"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Fixed replies.
const (
	MsgBusy        = "O sistema está ocupado. Tente novamente em breve."
	MsgNoServices  = "No momento não há serviços cadastrados. Tente novamente mais tarde."
	MsgFallback    = "Olá. Sou o assistente da BarberPro. Como posso ajudar?"
	msgServicesFmt = "Olá. Segue a lista de serviços:\n\n%s\n\nQual serviço deseja agendar?"
)

// Turn outcomes reported to metrics.
const (
	outcomeReply       = "reply"
	outcomeServices    = "list_services"
	outcomeBooking     = "booking"
	outcomeBooked      = "booked"
	outcomeInvalidArgs = "invalid_arguments"
	outcomeUnknownTool = "unknown_tool"
	outcomeBusy        = "busy"
	outcomeError       = "error"
)

const (
	defaultLLMTimeout  = 60 * time.Second
	defaultMaxTokens   = 512
	defaultMaxHistory  = 40
	defaultTemperature = 0.2
)

var conversationTracer = otel.Tracer("smartschedule.internal.conversation")

// Catalog lists the bookable services.
type Catalog interface {
	ListServices(ctx context.Context) ([]schedule.Service, error)
}

// Booker resolves book_appointment calls.
type Booker interface {
	Resolve(ctx context.Context, req booking.Request) booking.Result
}

// Metrics receives per-turn observations.
type Metrics interface {
	ObserveTurn(outcome string)
	ObserveToolCall(tool string)
	ObserveIgnoredToolCalls(n int)
	ObserveLLMLatency(status string, seconds float64)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID string `json:"session_id"`
	Text      string `json:"response"`
	Booked    bool   `json:"-"`
}

type orchestratorConfig struct {
	businessName string
	location     *time.Location
	timeout      time.Duration
	maxTokens    int32
	temperature  float32
	maxHistory   int
	model        string
	metrics      Metrics
	now          func() time.Time
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*orchestratorConfig)

// WithBusinessName sets the name used in the receptionist persona.
func WithBusinessName(name string) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if strings.TrimSpace(name) != "" {
			cfg.businessName = name
		}
	}
}

// WithLocation sets the timezone of the date embedded in the prompt.
func WithLocation(loc *time.Location) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if loc != nil {
			cfg.location = loc
		}
	}
}

// WithLLMTimeout bounds each model call.
func WithLLMTimeout(d time.Duration) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithGeneration overrides output token limit and temperature.
func WithGeneration(maxTokens int32, temperature float32) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if maxTokens > 0 {
			cfg.maxTokens = maxTokens
		}
		cfg.temperature = temperature
	}
}

// WithModel overrides the provider's default model id.
func WithModel(model string) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.model = strings.TrimSpace(model)
	}
}

// WithMaxHistory caps how many stored turns are replayed to the model.
func WithMaxHistory(n int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if n > 0 {
			cfg.maxHistory = n
		}
	}
}

// WithMetrics attaches turn metrics.
func WithMetrics(m Metrics) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		cfg.metrics = m
	}
}

// WithClock overrides time.Now for prompt dates.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Orchestrator runs one chat turn: prompt, model call, tool dispatch and
// history bookkeeping.
type Orchestrator struct {
	llm     LLMClient
	catalog Catalog
	booker  Booker
	history HistoryStore
	locks   *sessionLocks
	logger  *logging.Logger
	cfg     orchestratorConfig
}

// NewOrchestrator wires the turn pipeline.
func NewOrchestrator(llm LLMClient, catalog Catalog, booker Booker, history HistoryStore, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if llm == nil {
		panic("conversation: llm client cannot be nil")
	}
	if catalog == nil {
		panic("conversation: catalog cannot be nil")
	}
	if booker == nil {
		panic("conversation: booker cannot be nil")
	}
	if history == nil {
		panic("conversation: history store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := orchestratorConfig{
		businessName: defaultBusinessName,
		location:     time.UTC,
		timeout:      defaultLLMTimeout,
		maxTokens:    defaultMaxTokens,
		temperature:  defaultTemperature,
		maxHistory:   defaultMaxHistory,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Orchestrator{
		llm:     llm,
		catalog: catalog,
		booker:  booker,
		history: history,
		locks:   newSessionLocks(),
		logger:  logger,
		cfg:     cfg,
	}
}

// HandleMessage processes one customer message. It never fails: errors are
// logged and turned into fixed replies.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) Reply {
	ctx, span := conversationTracer.Start(ctx, "conversation.handle_message")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	unlock := o.locks.Lock(sessionID)
	defer unlock()

	logger := o.logger.With("session_id", sessionID)

	reply, outcome, err := o.turn(ctx, logger, sessionID, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsRateLimited(err) {
			logger.Warn("llm rate limited", "error", err)
			o.observeTurn(outcomeBusy)
			return Reply{SessionID: sessionID, Text: MsgBusy}
		}
		logger.Error("chat turn failed", "error", err)
		o.observeTurn(outcomeError)
		return Reply{SessionID: sessionID, Text: booking.MsgTechnicalError}
	}
	span.SetAttributes(attribute.String("chat.outcome", outcome))
	o.observeTurn(outcome)
	return reply
}

// Reset drops the stored history of a session.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	unlock := o.locks.Lock(sessionID)
	defer unlock()
	return o.history.Reset(ctx, sessionID)
}

func (o *Orchestrator) turn(ctx context.Context, logger *logging.Logger, sessionID, text string) (Reply, string, error) {
	history, err := o.history.Load(ctx, sessionID)
	if err != nil {
		return Reply{}, "", err
	}

	resp, err := o.complete(ctx, history, text)
	if err != nil {
		return Reply{}, "", err
	}

	var (
		replyText string
		outcome   string
		booked    bool
	)
	if len(resp.ToolCalls) == 0 {
		replyText, outcome = resp.Text, outcomeReply
	} else {
		if extra := len(resp.ToolCalls) - 1; extra > 0 {
			names := make([]string, 0, extra)
			for _, call := range resp.ToolCalls[1:] {
				names = append(names, call.Name)
			}
			logger.Warn("ignoring extra tool calls", "honored", resp.ToolCalls[0].Name, "ignored", names)
			if o.cfg.metrics != nil {
				o.cfg.metrics.ObserveIgnoredToolCalls(extra)
			}
		}
		replyText, outcome, booked, err = o.dispatch(ctx, logger, resp.ToolCalls[0])
		if err != nil {
			return Reply{}, "", err
		}
	}

	if strings.TrimSpace(replyText) == "" {
		replyText = MsgFallback
	}

	if booked {
		if err := o.history.Reset(ctx, sessionID); err != nil {
			logger.Error("failed to reset history after booking", "error", err)
		}
	} else {
		history = append(history,
			ChatMessage{Role: ChatRoleUser, Content: text},
			ChatMessage{Role: ChatRoleAssistant, Content: replyText},
		)
		history = trimHistory(history, o.cfg.maxHistory)
		if err := o.history.Save(ctx, sessionID, history); err != nil {
			logger.Error("failed to save history", "error", err)
		}
	}

	return Reply{SessionID: sessionID, Text: replyText, Booked: booked}, outcome, nil
}

func (o *Orchestrator) complete(ctx context.Context, history []ChatMessage, text string) (LLMResponse, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	history = trimHistory(history, o.cfg.maxHistory)
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: text})

	req := LLMRequest{
		Model:       o.cfg.model,
		System:      []string{buildSystemPrompt(o.cfg.businessName, o.cfg.now().In(o.cfg.location))},
		Messages:    messages,
		Tools:       Tools(),
		MaxTokens:   o.cfg.maxTokens,
		Temperature: o.cfg.temperature,
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.timeout)
	defer cancel()
	callCtx, span := conversationTracer.Start(callCtx, "conversation.llm_complete")
	defer span.End()

	start := time.Now()
	resp, err := o.llm.Complete(callCtx, req)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	if o.cfg.metrics != nil {
		o.cfg.metrics.ObserveLLMLatency(status, time.Since(start).Seconds())
	}
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: llm completion: %w", err)
	}
	span.SetAttributes(attribute.Int("llm.tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, logger *logging.Logger, call ToolCall) (string, string, bool, error) {
	if o.cfg.metrics != nil {
		o.cfg.metrics.ObserveToolCall(call.Name)
	}
	switch call.Name {
	case ToolListServices:
		services, err := o.catalog.ListServices(ctx)
		if err != nil {
			return "", "", false, fmt.Errorf("conversation: list services: %w", err)
		}
		return RenderServices(services), outcomeServices, false, nil

	case ToolBookAppointment:
		req, err := DecodeBookingArgs(call.Args)
		if err != nil {
			logger.Warn("rejected book_appointment arguments", "error", err)
			return booking.MsgMissingFields, outcomeInvalidArgs, false, nil
		}
		res := o.booker.Resolve(ctx, req)
		if res.Confirmed() {
			return res.Message, outcomeBooked, true, nil
		}
		return res.Message, outcomeBooking, false, nil

	default:
		logger.Warn("model requested unknown tool", "tool", call.Name)
		return booking.MsgTechnicalError, outcomeUnknownTool, false, nil
	}
}

// trimHistory keeps at most limit trailing messages and drops any leading
// non-user turns: providers require the transcript to open with the user.
func trimHistory(history []ChatMessage, limit int) []ChatMessage {
	if n := len(history); n > limit {
		history = history[n-limit:]
	}
	for len(history) > 0 && history[0].Role != ChatRoleUser {
		history = history[1:]
	}
	return history
}

// RenderServices formats the catalog reply.
func RenderServices(services []schedule.Service) string {
	if len(services) == 0 {
		return MsgNoServices
	}
	lines := make([]string, 0, len(services))
	for _, svc := range services {
		lines = append(lines, fmt.Sprintf("- %s: %s", svc.Name, svc.Price()))
	}
	return fmt.Sprintf(msgServicesFmt, strings.Join(lines, "\n"))
}

func (o *Orchestrator) observeTurn(outcome string) {
	if o.cfg.metrics != nil {
		o.cfg.metrics.ObserveTurn(outcome)
	}
}

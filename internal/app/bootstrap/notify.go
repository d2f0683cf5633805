package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/smart-schedule/cmd/mainconfig"
	appconfig "github.com/wolfman30/smart-schedule/internal/config"
	"github.com/wolfman30/smart-schedule/internal/notify"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
)

// BuildNotifier returns the booking notification service. Without a
// recipient or provider it falls back to the logging stub sender.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*notify.Service, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sender, err := buildEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.NotifyEmailTo) == "" {
		logger.Warn("booking notifications disabled (NOTIFY_EMAIL_TO not set)")
	}
	return notify.NewService(sender, cfg.NotifyEmailTo, cfg.BusinessName, cfg.Location(), logger), nil
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.NotifyEmailProvider {
	case EmailProviderSendGrid:
		if cfg.SendGridAPIKey == "" || cfg.EmailFromAddress == "" {
			return nil, fmt.Errorf("bootstrap: SENDGRID_API_KEY and EMAIL_FROM_ADDRESS are required for sendgrid")
		}
		logger.Info("sendgrid email sender initialized for notifications")
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil

	case EmailProviderSES:
		if cfg.EmailFromAddress == "" {
			return nil, fmt.Errorf("bootstrap: EMAIL_FROM_ADDRESS is required for ses")
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("ses email sender initialized for notifications", "region", cfg.AWSRegion)
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger), nil

	case "":
		return notify.NewStubEmailSender(logger), nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown NOTIFY_EMAIL_PROVIDER %q", cfg.NotifyEmailProvider)
	}
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/models"
)

// messageSender is the slice of the telegram bot API the notifier uses,
// extracted so tests can substitute a mock.
type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*botmodels.Message, error)
}

// Notifier pushes raised monitoring alerts to the ops chat. Delivery is
// best-effort: a missing token or a send failure is logged and never blocks
// the monitoring pipeline.
type Notifier struct {
	bot    messageSender
	chatID int64
	logger *logrus.Logger
}

// NewNotifier initializes the telegram-backed notifier. With no bot token
// configured the notifier is disabled and every send becomes a no-op.
func NewNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *Notifier {
	n := &Notifier{logger: logger}
	if cfg.BotToken == "" {
		logger.Info("Telegram notifications disabled, no bot token configured")
		return n
	}

	if cfg.ChatID == 0 {
		logger.Warn("Telegram chat ID not configured, notifications disabled")
		return n
	}

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		logger.WithError(err).Warn("Telegram bot initialization failed, notifications disabled")
		return n
	}

	n.bot = b
	n.chatID = cfg.ChatID
	return n
}

// Enabled reports whether alerts will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.bot != nil
}

// NotifyAlerts delivers each newly raised alert to the ops chat.
func (n *Notifier) NotifyAlerts(ctx context.Context, alerts []*models.Alert) {
	if n.bot == nil || len(alerts) == 0 {
		return
	}

	for _, alert := range alerts {
		_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      formatAlertMessage(alert),
			ParseMode: botmodels.ParseModeMarkdown,
		})
		if err != nil {
			n.logger.WithError(err).WithField("kind", alert.Kind).
				Warn("Failed to deliver alert notification")
		}
	}
}

func formatAlertMessage(alert *models.Alert) string {
	icon := "⚠️"
	if alert.Severity == models.SeverityCritical {
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* (%s)\n", icon, kindTitle(alert.Kind), alert.Severity)
	fmt.Fprintf(&b, "%s\n", alert.Message)
	fmt.Fprintf(&b, "Recommended: %s\n", alert.Action)
	fmt.Fprintf(&b, "Raised: %s", alert.RaisedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

func kindTitle(kind models.AlertKind) string {
	switch kind {
	case models.AlertPerformanceDegradation:
		return "Performance Degradation"
	case models.AlertDataDrift:
		return "Data Drift"
	case models.AlertHighRiskCustomer:
		return "High Risk Customers"
	case models.AlertLowVolume:
		return "Low Prediction Volume"
	default:
		return string(kind)
	}
}

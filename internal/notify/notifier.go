package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// SlackNotifier posts SLA breach alerts to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier builds the notifier from config.
func NewSlackNotifier(cfg config.SlackConfig, logger *zap.Logger) *SlackNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackNotifier{
		client:  slack.New(cfg.BotToken),
		channel: cfg.Channel,
		logger:  logger,
	}
}

// NotifyBreach posts one alert for the breached ticket.
func (n *SlackNotifier) NotifyBreach(ctx context.Context, ticket *domain.Ticket) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(formatBreach(ticket), false))
	if err != nil {
		return fmt.Errorf("posting slack message: %w", err)
	}
	n.logger.Debug("breach alert posted",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel", n.channel))
	return nil
}

func formatBreach(ticket *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: SLA breach on ticket %s\n", ticket.ID)
	fmt.Fprintf(&b, "Priority %s, escalation level %d", ticket.Priority, ticket.EscalationLevel)
	if ticket.SLADueAt != nil {
		fmt.Fprintf(&b, "\nFirst response was due %s", ticket.SLADueAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// LogNotifier writes breach alerts to the service log. It backs
// deployments without a Slack token.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds the notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// NotifyBreach logs the breach at warn level.
func (n *LogNotifier) NotifyBreach(_ context.Context, ticket *domain.Ticket) error {
	fields := []zap.Field{
		zap.String("ticket_id", ticket.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.Int("escalation_level", ticket.EscalationLevel),
	}
	if ticket.SLADueAt != nil {
		fields = append(fields, zap.Time("sla_due_at", *ticket.SLADueAt))
	}
	n.logger.Warn("sla breached", fields...)
	return nil
}

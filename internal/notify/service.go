// Package notify delivers operator-facing signals: the event log trail
// and the SLA breach alert channel.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/events"
)

// Service writes the operator event trail for ticket lifecycle events.
// Breach alert delivery runs separately through the monitor's Notifier
// so per-ticket delivery results stay accountable there.
type Service struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewService creates the service.
func NewService(dispatcher events.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to the lifecycle events.
func (s *Service) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handleEvent("TicketCreated"))
	s.dispatcher.Subscribe(events.EventTicketReused, s.handleEvent("TicketReused"))
	s.dispatcher.Subscribe(events.EventTicketRouted, s.handleEvent("TicketRouted"))
	s.dispatcher.Subscribe(events.EventTicketAssigned, s.handleEvent("TicketAssigned"))
	s.dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleEvent("TicketStatusChanged"))
	s.dispatcher.Subscribe(events.EventTicketPriorityChanged, s.handleEvent("TicketPriorityChanged"))
	s.dispatcher.Subscribe(events.EventSLAApplied, s.handleEvent("SLAApplied"))
	s.dispatcher.Subscribe(events.EventSLABreached, s.handleEvent("SLABreached"))
}

func (s *Service) handleEvent(name string) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		s.logger.Info(name,
			zap.String("ticket_id", event.TicketID),
			zap.String("actor", event.Actor),
			zap.Any("payload", event.Payload))
		return nil
	}
}

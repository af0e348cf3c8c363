package triage

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	"github.com/helpdesk-kit/triage-service/internal/sentiment"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// Outcome reports what triage did with one message. TriageErr carries
// an escalation-path failure for operator visibility; the message
// itself is stored and the reply path proceeds regardless.
type Outcome struct {
	MessageID      string
	SentimentScore float64
	SentimentLabel string
	Escalated      bool
	Ticket         *domain.Ticket
	Created        bool
	TriageErr      error
}

// TriageService runs the per-message pipeline: score sentiment, store
// the message, evaluate the escalation rules, and when they fire create
// or reuse the conversation's ticket and enrich it with routing, SLA
// deadlines and an agent.
type TriageService struct {
	sentiment     sentiment.Analyzer
	evaluator     *Evaluator
	lifecycle     *TicketLifecycleManager
	router        *DepartmentRouter
	resolver      *SLAResolver
	assigner      *AgentAssigner
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// ServiceDependencies bundles collaborators for the triage service.
type ServiceDependencies struct {
	Sentiment        sentiment.Analyzer
	Evaluator        *Evaluator
	Lifecycle        *TicketLifecycleManager
	Router           *DepartmentRouter
	Resolver         *SLAResolver
	Assigner         *AgentAssigner
	ConversationRepo repository.ConversationRepository
	MessageRepo      repository.MessageRepository
	Logger           *zap.Logger
	Metrics          *observability.Metrics
}

// NewTriageService constructs the service.
func NewTriageService(deps ServiceDependencies) *TriageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageService{
		sentiment:     deps.Sentiment,
		evaluator:     deps.Evaluator,
		lifecycle:     deps.Lifecycle,
		router:        deps.Router,
		resolver:      deps.Resolver,
		assigner:      deps.Assigner,
		conversations: deps.ConversationRepo,
		messages:      deps.MessageRepo,
		logger:        logger,
		metrics:       deps.Metrics,
	}
}

// HandleUserMessage stores the message and runs triage on it. An error
// return means the message itself could not be accepted; triage
// failures after that point land in Outcome.TriageErr instead.
func (s *TriageService) HandleUserMessage(ctx context.Context, conversationID, body string) (*Outcome, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown conversation", map[string]any{
				"conversation_id": conversationID,
			})
		}
		return nil, err
	}
	if conversation.Status == domain.ConversationStatusClosed {
		return nil, apperrors.NewValidationError("conversation is closed", map[string]any{
			"conversation_id": conversationID,
		})
	}

	score := s.sentiment.Score(body)
	message := &domain.Message{
		ConversationID: conversation.ID,
		Sender:         domain.SenderUser,
		Body:           body,
		SentimentScore: &score,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conversation.ID); err != nil {
		s.logger.Warn("touch conversation failed",
			zap.String("conversation_id", conversation.ID),
			zap.Error(err))
	}

	outcome := &Outcome{
		MessageID:      message.ID,
		SentimentScore: score,
		SentimentLabel: sentiment.Label(score),
	}
	s.runTriage(ctx, conversation.ID, message, outcome)
	return outcome, nil
}

func (s *TriageService) runTriage(ctx context.Context, conversationID string, message *domain.Message, outcome *Outcome) {
	recent, err := s.messages.ListRecentUserMessages(ctx, conversationID, s.evaluator.WindowSize())
	if err != nil {
		s.degrade(outcome, "evaluation", conversationID, err)
		return
	}

	decision, fired := s.evaluator.Evaluate(*message, recent)
	s.metrics.RecordEscalation(fired)
	if !fired {
		return
	}
	outcome.Escalated = true

	result, err := s.lifecycle.EvaluateAndEscalate(ctx, EscalateInput{
		ConversationID: conversationID,
		MessageID:      message.ID,
		Priority:       decision.Priority,
		Reason:         decision.Reason,
	})
	if err != nil {
		s.degrade(outcome, "lifecycle", conversationID, err)
		return
	}
	outcome.Ticket = result.Ticket
	outcome.Created = result.Created

	outcome.Ticket = s.enrich(ctx, result.Ticket, message.Body)
}

// EscalateTicket funnels a manual escalation through the same path as
// message triage: reuse or create the conversation's open ticket, then
// fill in routing, SLA deadlines and assignment for whatever is still
// blank. messageID anchors the escalation to a conversation message and
// actor attributes the audit trail to the operator.
func (s *TriageService) EscalateTicket(ctx context.Context, conversationID, messageID, actor string, priority domain.TicketPriority, reason string) (*EscalateResult, error) {
	result, err := s.lifecycle.EvaluateAndEscalate(ctx, EscalateInput{
		ConversationID: conversationID,
		MessageID:      messageID,
		Priority:       priority,
		Reason:         reason,
		Actor:          actor,
	})
	if err != nil {
		return nil, err
	}

	text := reason
	if message, err := s.messages.GetByID(ctx, messageID); err == nil {
		text = message.Body
	}
	result.Ticket = s.enrich(ctx, result.Ticket, text)
	return result, nil
}

// enrich routes, applies SLA deadlines and assigns an agent. Each step
// is skipped when the ticket already carries the field, so a reused
// ticket is only filled in where it is still blank. Step failures
// degrade the result without failing the pipeline.
func (s *TriageService) enrich(ctx context.Context, ticket *domain.Ticket, text string) *domain.Ticket {
	var decision *RoutingDecision
	if ticket.DepartmentID == nil {
		d, err := s.router.Decide(ctx, text)
		if err != nil {
			s.metrics.RecordDegraded("routing")
			s.logger.Warn("routing failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			decision = d
		}
	}

	departmentID := ticket.DepartmentID
	if decision.Routed() {
		departmentID = decision.DepartmentID
	}

	var window *SLAWindow
	if ticket.SLADueAt == nil {
		w, err := s.resolver.Resolve(ctx, departmentID, ticket.Priority)
		if err != nil {
			s.metrics.RecordDegraded("sla")
			s.logger.Warn("sla resolution failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			window = w
		}
	}

	var agentID *string
	if ticket.AssignedAgentID == nil {
		a, err := s.assigner.Assign(ctx, departmentID)
		if err != nil {
			s.metrics.RecordDegraded("assignment")
			s.logger.Warn("agent assignment failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			agentID = a
		}
	}

	if decision == nil && window == nil && agentID == nil {
		return ticket
	}

	updated, err := s.lifecycle.ApplyRouting(ctx, ticket, decision, window, agentID)
	if err != nil {
		s.metrics.RecordDegraded("apply")
		s.logger.Error("persisting routing outcome failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return ticket
	}
	return updated
}

func (s *TriageService) degrade(outcome *Outcome, step, conversationID string, err error) {
	outcome.TriageErr = err
	s.metrics.RecordDegraded(step)
	s.logger.Error("triage degraded",
		zap.String("step", step),
		zap.String("conversation_id", conversationID),
		zap.Error(err))
}

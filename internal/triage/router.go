package triage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/classifier"
	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	"github.com/helpdesk-kit/triage-service/internal/repository"
)

// RoutingDecision is the outcome of department selection. A nil
// DepartmentID means unrouted. AIConfidence and AIPredictedDepartment
// are recorded whenever the classifier answered, even when the answer
// lost to the fallback path or the ticket stayed unrouted.
type RoutingDecision struct {
	DepartmentID          *string
	DepartmentName        string
	Method                *domain.RoutingMethod
	AIConfidence          *float64
	AIPredictedDepartment *string
}

// Routed reports whether the decision picked a department.
func (d *RoutingDecision) Routed() bool {
	return d != nil && d.DepartmentID != nil
}

// DepartmentRouter picks a department using the AI classifier first and
// keyword rules second.
type DepartmentRouter struct {
	departments repository.DepartmentRepository
	rules       repository.RoutingRuleRepository
	classifier  classifier.Classifier
	threshold   float64
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	RuleRepo       repository.RoutingRuleRepository
	Classifier     classifier.Classifier
	Threshold      float64
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewDepartmentRouter constructs the router. A nil classifier disables
// the AI path entirely.
func NewDepartmentRouter(deps RouterDependencies) *DepartmentRouter {
	threshold := deps.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentRouter{
		departments: deps.DepartmentRepo,
		rules:       deps.RuleRepo,
		classifier:  deps.Classifier,
		threshold:   threshold,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// Decide routes the given text. The AI path wins only when the
// classifier answers in time, names a real active department and clears
// the confidence threshold; everything else lands on keyword rules.
// When no rule matches either, the decision comes back unrouted and the
// ticket waits for manual routing. Classifier failures are absorbed
// here and never propagate.
func (r *DepartmentRouter) Decide(ctx context.Context, text string) (*RoutingDecision, error) {
	decision := &RoutingDecision{}

	departments, err := r.departments.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(departments) == 0 {
		r.metrics.RecordRouting("none")
		return decision, nil
	}

	if r.classifier != nil {
		names := make([]string, len(departments))
		for i, d := range departments {
			names[i] = d.Name
		}

		prediction, err := r.classifier.Classify(ctx, text, names)
		if err != nil {
			r.logger.Warn("classification failed, using fallback routing", zap.Error(err))
		} else if prediction != nil {
			confidence := prediction.Confidence
			predicted := prediction.Department
			decision.AIConfidence = &confidence
			decision.AIPredictedDepartment = &predicted

			if confidence >= r.threshold {
				if dept := matchDepartment(departments, predicted); dept != nil {
					id := dept.ID
					method := domain.RoutingMethodAI
					decision.DepartmentID = &id
					decision.DepartmentName = dept.Name
					decision.Method = &method
					r.metrics.RecordRouting("ai")
					return decision, nil
				}
				r.logger.Warn("classifier named unknown department",
					zap.String("predicted", predicted))
			} else {
				r.logger.Info("classifier confidence below threshold",
					zap.Float64("confidence", confidence),
					zap.Float64("threshold", r.threshold))
			}
		}
	}

	if err := r.fallbackRoute(ctx, text, departments, decision); err != nil {
		return nil, err
	}
	if decision.Routed() {
		r.metrics.RecordRouting("fallback")
	} else {
		r.metrics.RecordRouting("none")
	}
	return decision, nil
}

func (r *DepartmentRouter) fallbackRoute(ctx context.Context, text string, departments []domain.Department, decision *RoutingDecision) error {
	rules, err := r.rules.ListActive(ctx)
	if err != nil {
		return err
	}

	method := domain.RoutingMethodFallback
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		if !strings.Contains(lowered, strings.ToLower(rule.Keyword)) {
			continue
		}
		if dept := matchDepartmentByID(departments, rule.DepartmentID); dept != nil {
			id := dept.ID
			decision.DepartmentID = &id
			decision.DepartmentName = dept.Name
			decision.Method = &method
			return nil
		}
	}
	return nil
}

func matchDepartment(departments []domain.Department, name string) *domain.Department {
	for i := range departments {
		if strings.EqualFold(departments[i].Name, name) {
			return &departments[i]
		}
	}
	return nil
}

func matchDepartmentByID(departments []domain.Department, id string) *domain.Department {
	for i := range departments {
		if departments[i].ID == id {
			return &departments[i]
		}
	}
	return nil
}

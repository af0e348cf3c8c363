package triage

import (
	"strings"

	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// Sentiment bands for the escalation rules. A single strongly negative
// message asks for HIGH; a run of moderately negative ones for MEDIUM.
const (
	strongNegativeBand   = -0.6
	repeatedNegativeBand = -0.4
)

const (
	reasonStrongNegative   = "strong negative sentiment"
	reasonRepeatedNegative = "repeated moderate negative sentiment"
	reasonKeyword          = "escalation keyword detected"
)

// Decision is the outcome of an escalation evaluation.
type Decision struct {
	Priority domain.TicketPriority
	Reason   string
}

// Evaluator decides whether a message escalates its conversation. It is
// pure: no storage, no clock, same input always yields the same output.
type Evaluator struct {
	keywords   []string
	windowSize int
}

// NewEvaluator compiles the escalation policy into an evaluator.
func NewEvaluator(policy config.EscalationPolicy) *Evaluator {
	keywords := make([]string, 0, len(policy.Keywords))
	for _, kw := range policy.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	windowSize := policy.SentimentWindow
	if windowSize <= 0 {
		windowSize = 3
	}
	return &Evaluator{keywords: keywords, windowSize: windowSize}
}

// Evaluate runs all three rules against the latest message; none
// short-circuits. recent is the trailing window of user messages,
// latest included. The returned bool reports whether any rule fired;
// the decision carries the most severe requested priority and all fired
// reasons joined in rule order.
func (e *Evaluator) Evaluate(latest domain.Message, recent []domain.Message) (Decision, bool) {
	var (
		priority domain.TicketPriority
		reasons  []string
	)

	fire := func(p domain.TicketPriority, reason string) {
		if priority == "" {
			priority = p
		} else {
			priority = domain.MaxPriority(priority, p)
		}
		reasons = append(reasons, reason)
	}

	if latest.SentimentScore != nil && *latest.SentimentScore < strongNegativeBand {
		fire(domain.TicketPriorityHigh, reasonStrongNegative)
	}

	// The repeated-negativity rule needs a full window of scored
	// messages; with fewer, a single bad message would double-count
	// through its own average.
	if mean, scored := windowMean(recent); scored >= e.windowSize && mean < repeatedNegativeBand {
		fire(domain.TicketPriorityMedium, reasonRepeatedNegative)
	}

	lowered := strings.ToLower(latest.Body)
	for _, kw := range e.keywords {
		if strings.Contains(lowered, kw) {
			fire(domain.TicketPriorityCritical, reasonKeyword)
			break
		}
	}

	if len(reasons) == 0 {
		return Decision{}, false
	}
	return Decision{Priority: priority, Reason: strings.Join(reasons, "; ")}, true
}

// WindowSize reports how many trailing messages Evaluate expects.
func (e *Evaluator) WindowSize() int {
	return e.windowSize
}

func windowMean(messages []domain.Message) (mean float64, scored int) {
	var sum float64
	for _, m := range messages {
		if m.SentimentScore == nil {
			continue
		}
		sum += *m.SentimentScore
		scored++
	}
	if scored == 0 {
		return 0, 0
	}
	return sum / float64(scored), scored
}

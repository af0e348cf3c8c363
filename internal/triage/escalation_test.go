package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/domain"
)

func sentimentPtr(v float64) *float64 {
	return &v
}

func userMessage(body string, score *float64) domain.Message {
	return domain.Message{
		ConversationID: "conv-1",
		Sender:         domain.SenderUser,
		Body:           body,
		SentimentScore: score,
	}
}

func newTestEvaluator(keywords ...string) *Evaluator {
	return NewEvaluator(config.EscalationPolicy{
		SentimentWindow: 3,
		Keywords:        keywords,
	})
}

func TestEvaluatorStrongNegative(t *testing.T) {
	evaluator := newTestEvaluator()

	t.Run("fires below the band", func(t *testing.T) {
		latest := userMessage("nothing works anymore", sentimentPtr(-0.75))
		decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityHigh, decision.Priority)
		assert.Equal(t, "strong negative sentiment", decision.Reason)
	})

	t.Run("band boundary stays quiet", func(t *testing.T) {
		latest := userMessage("nothing works anymore", sentimentPtr(-0.6))
		_, fired := evaluator.Evaluate(latest, []domain.Message{latest})
		assert.False(t, fired)
	})

	t.Run("unscored message stays quiet", func(t *testing.T) {
		latest := userMessage("nothing works anymore", nil)
		_, fired := evaluator.Evaluate(latest, []domain.Message{latest})
		assert.False(t, fired)
	})
}

func TestEvaluatorRepeatedNegativity(t *testing.T) {
	evaluator := newTestEvaluator()

	recent := func(scores ...*float64) []domain.Message {
		messages := make([]domain.Message, 0, len(scores))
		for _, s := range scores {
			messages = append(messages, userMessage("still not solved", s))
		}
		return messages
	}

	t.Run("full window of moderate negativity fires", func(t *testing.T) {
		window := recent(sentimentPtr(-0.5), sentimentPtr(-0.45), sentimentPtr(-0.55))
		decision, fired := evaluator.Evaluate(window[len(window)-1], window)

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityMedium, decision.Priority)
		assert.Equal(t, "repeated moderate negative sentiment", decision.Reason)
	})

	t.Run("short window stays quiet even when very negative", func(t *testing.T) {
		window := recent(sentimentPtr(-0.5), sentimentPtr(-0.59))
		_, fired := evaluator.Evaluate(window[len(window)-1], window)
		assert.False(t, fired)
	})

	t.Run("unscored messages do not count toward the window", func(t *testing.T) {
		window := recent(sentimentPtr(-0.5), nil, sentimentPtr(-0.55))
		_, fired := evaluator.Evaluate(window[len(window)-1], window)
		assert.False(t, fired)
	})

	t.Run("mean at the band stays quiet", func(t *testing.T) {
		window := recent(sentimentPtr(-0.4), sentimentPtr(-0.4), sentimentPtr(-0.4))
		_, fired := evaluator.Evaluate(window[len(window)-1], window)
		assert.False(t, fired)
	})
}

func TestEvaluatorKeyword(t *testing.T) {
	evaluator := newTestEvaluator("manager", "refund")

	t.Run("match fires critical", func(t *testing.T) {
		latest := userMessage("I need a refund now", sentimentPtr(0.1))
		decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityCritical, decision.Priority)
		assert.Equal(t, "escalation keyword detected", decision.Reason)
	})

	t.Run("match is case insensitive", func(t *testing.T) {
		latest := userMessage("Get me your MANAGER", sentimentPtr(0.0))
		decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityCritical, decision.Priority)
	})

	t.Run("substring match counts", func(t *testing.T) {
		latest := userMessage("is this purchase refundable?", sentimentPtr(0.0))
		_, fired := evaluator.Evaluate(latest, []domain.Message{latest})
		assert.True(t, fired)
	})

	t.Run("multiple keyword hits report one reason", func(t *testing.T) {
		latest := userMessage("refund me or I talk to your manager", sentimentPtr(0.0))
		decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

		require.True(t, fired)
		assert.Equal(t, "escalation keyword detected", decision.Reason)
	})
}

func TestEvaluatorCombinesRules(t *testing.T) {
	evaluator := newTestEvaluator("manager")

	t.Run("most severe priority wins", func(t *testing.T) {
		latest := userMessage("get me a manager", sentimentPtr(-0.8))
		decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityCritical, decision.Priority)
		assert.Equal(t, "strong negative sentiment; escalation keyword detected", decision.Reason)
	})

	t.Run("all fired reasons concatenate in rule order", func(t *testing.T) {
		window := []domain.Message{
			userMessage("this keeps failing", sentimentPtr(-0.5)),
			userMessage("still failing", sentimentPtr(-0.5)),
			userMessage("get me a manager", sentimentPtr(-0.7)),
		}
		decision, fired := evaluator.Evaluate(window[2], window)

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityCritical, decision.Priority)
		expected := strings.Join([]string{
			"strong negative sentiment",
			"repeated moderate negative sentiment",
			"escalation keyword detected",
		}, "; ")
		assert.Equal(t, expected, decision.Reason)
	})

	t.Run("sentiment rules alone keep high ceiling", func(t *testing.T) {
		window := []domain.Message{
			userMessage("this keeps failing", sentimentPtr(-0.5)),
			userMessage("still failing", sentimentPtr(-0.5)),
			userMessage("completely broken now", sentimentPtr(-0.7)),
		}
		decision, fired := evaluator.Evaluate(window[2], window)

		require.True(t, fired)
		assert.Equal(t, domain.TicketPriorityHigh, decision.Priority)
	})
}

func TestEvaluatorNoRuleFires(t *testing.T) {
	evaluator := newTestEvaluator("manager")

	latest := userMessage("thanks, that helped", sentimentPtr(0.6))
	decision, fired := evaluator.Evaluate(latest, []domain.Message{latest})

	assert.False(t, fired)
	assert.Empty(t, decision.Priority)
	assert.Empty(t, decision.Reason)
}

func TestNewEvaluatorNormalizesPolicy(t *testing.T) {
	evaluator := NewEvaluator(config.EscalationPolicy{
		SentimentWindow: 0,
		Keywords:        []string{"  Manager ", "", "REFUND"},
	})

	assert.Equal(t, 3, evaluator.WindowSize())

	latest := userMessage("talking to the manager about a refund", sentimentPtr(0.0))
	_, fired := evaluator.Evaluate(latest, []domain.Message{latest})
	assert.True(t, fired)
}

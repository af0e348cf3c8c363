package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TriagePolicy is the operator-editable part of escalation behavior,
// loaded from a YAML file so keyword lists can change without a deploy.
type TriagePolicy struct {
	Escalation EscalationPolicy `yaml:"escalation"`
}

// EscalationPolicy holds the tunable inputs of the escalation rules.
// The sentiment bands themselves are fixed; only the keyword list and
// the repeated-negativity window size are configurable.
type EscalationPolicy struct {
	SentimentWindow int      `yaml:"sentiment_window"`
	Keywords        []string `yaml:"keywords"`
}

// LoadTriagePolicy reads the policy file at path. A missing file is not
// an error; the built-in defaults apply so the service can start bare.
func LoadTriagePolicy(path string) (*TriagePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTriagePolicy(), nil
		}
		return nil, fmt.Errorf("read triage policy: %w", err)
	}

	policy := DefaultTriagePolicy()
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("parse triage policy: %w", err)
	}
	policy.normalize()
	if len(policy.Escalation.Keywords) == 0 {
		policy.Escalation.Keywords = DefaultTriagePolicy().Escalation.Keywords
	}
	return policy, nil
}

func (p *TriagePolicy) normalize() {
	cleaned := make([]string, 0, len(p.Escalation.Keywords))
	for _, kw := range p.Escalation.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	p.Escalation.Keywords = cleaned
	if p.Escalation.SentimentWindow <= 0 {
		p.Escalation.SentimentWindow = 3
	}
}

// DefaultTriagePolicy returns the compiled-in escalation keywords:
// urgency markers, anger markers, human-handoff phrases and refund
// demands.
func DefaultTriagePolicy() *TriagePolicy {
	return &TriagePolicy{
		Escalation: EscalationPolicy{
			SentimentWindow: 3,
			Keywords: []string{
				"urgent", "asap", "immediately", "emergency", "right now",
				"angry", "furious", "unacceptable", "outrageous", "fed up",
				"complaint", "manager", "supervisor", "escalate",
				"refund", "money back", "chargeback", "lawyer", "legal action",
			},
		},
	}
}

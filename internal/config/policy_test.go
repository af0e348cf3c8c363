package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triage_policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTriagePolicy(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		policy, err := LoadTriagePolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultTriagePolicy(), policy)
	})

	t.Run("keywords are lowercased and trimmed", func(t *testing.T) {
		path := writePolicyFile(t, `
escalation:
  sentiment_window: 5
  keywords:
    - " Urgent "
    - "MANAGER"
    - ""
    - "legal action"
`)
		policy, err := LoadTriagePolicy(path)
		require.NoError(t, err)
		assert.Equal(t, 5, policy.Escalation.SentimentWindow)
		assert.Equal(t, []string{"urgent", "manager", "legal action"}, policy.Escalation.Keywords)
	})

	t.Run("zero window falls back to three", func(t *testing.T) {
		path := writePolicyFile(t, `
escalation:
  sentiment_window: 0
  keywords: ["refund"]
`)
		policy, err := LoadTriagePolicy(path)
		require.NoError(t, err)
		assert.Equal(t, 3, policy.Escalation.SentimentWindow)
	})

	t.Run("emptied keyword list reinstates defaults", func(t *testing.T) {
		path := writePolicyFile(t, `
escalation:
  keywords: ["   ", ""]
`)
		policy, err := LoadTriagePolicy(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultTriagePolicy().Escalation.Keywords, policy.Escalation.Keywords)
	})

	t.Run("omitted keys keep defaults", func(t *testing.T) {
		path := writePolicyFile(t, "escalation: {}\n")
		policy, err := LoadTriagePolicy(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultTriagePolicy().Escalation.Keywords, policy.Escalation.Keywords)
		assert.Equal(t, 3, policy.Escalation.SentimentWindow)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := writePolicyFile(t, "escalation: [not: a: mapping\n")
		_, err := LoadTriagePolicy(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse triage policy")
	})
}

func TestDefaultTriagePolicy(t *testing.T) {
	policy := DefaultTriagePolicy()
	assert.Equal(t, 3, policy.Escalation.SentimentWindow)
	assert.Contains(t, policy.Escalation.Keywords, "urgent")
	assert.Contains(t, policy.Escalation.Keywords, "refund")
	assert.Contains(t, policy.Escalation.Keywords, "legal action")
}

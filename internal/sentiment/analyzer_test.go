package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconAnalyzerScore(t *testing.T) {
	analyzer := NewLexiconAnalyzer()

	cases := []struct {
		name string
		text string
		want float64
	}{
		{"plain negative", "the app is slow", -0.5},
		{"plain positive", "thanks, that was helpful", 2.0 / 3.0},
		{"multiple negatives", "this is terrible, everything is broken and useless", -0.75},
		{"no polarity words", "please reset my badge", 0},
		{"empty input", "", 0},
		{"punctuation only", "?!... ---", 0},
		{"negation flips negative", "that is not bad at all", 0.5},
		{"negation flips positive", "it is not working", -0.5},
		{"intensifier scales the hit", "I am very angry", -0.75},
		{"negation wins over intensifier", "not very good", -0.75},
		{"mixed polarity nets out", "the fix was great but the app is slow", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, analyzer.Score(tc.text), 1e-9)
		})
	}

	t.Run("score clamps to the negative bound", func(t *testing.T) {
		score := analyzer.Score("extremely terrible awful")
		assert.InDelta(t, -1.0, score, 1e-9)
	})

	t.Run("casing and punctuation do not change the score", func(t *testing.T) {
		plain := analyzer.Score("this is broken")
		shouty := analyzer.Score("THIS IS BROKEN!!!")
		assert.InDelta(t, plain, shouty, 1e-9)
	})

	t.Run("negation only reaches back two tokens", func(t *testing.T) {
		// "not" sits five tokens before "broken", so the hit keeps
		// its negative polarity.
		score := analyzer.Score("not sure why it broke, broken again")
		assert.InDelta(t, -0.5, score, 1e-9)
	})
}

func TestLabel(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{-0.75, "negative"},
		{-0.34, "negative"},
		{-0.33, "neutral"},
		{0, "neutral"},
		{0.33, "neutral"},
		{0.34, "positive"},
		{0.9, "positive"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Label(tc.score), "score %v", tc.score)
	}
}

package sentiment

import (
	"strings"
	"unicode"
)

// Analyzer scores text polarity on a [-1, 1] scale where -1 is
// strongly negative.
type Analyzer interface {
	Score(text string) float64
}

// lexiconAnalyzer is a deterministic rule-based scorer. It is
// intentionally simple: the escalation rules only need a stable signal,
// not state-of-the-art accuracy.
type lexiconAnalyzer struct {
	positive     map[string]struct{}
	negative     map[string]struct{}
	negations    map[string]struct{}
	intensifiers map[string]float64
}

// NewLexiconAnalyzer builds the default analyzer.
func NewLexiconAnalyzer() Analyzer {
	return &lexiconAnalyzer{
		positive: wordSet(
			"good", "great", "excellent", "awesome", "perfect", "thanks",
			"thank", "helpful", "resolved", "happy", "love", "wonderful",
			"appreciate", "fast", "working", "fixed", "solved", "nice",
		),
		negative: wordSet(
			"bad", "terrible", "awful", "horrible", "broken", "useless",
			"angry", "furious", "unacceptable", "worst", "hate", "slow",
			"frustrated", "frustrating", "disappointed", "disappointing",
			"ridiculous", "waste", "failing", "failed", "crash", "crashed",
			"wrong", "error", "stuck", "ignored", "outrageous", "annoyed",
		),
		negations: wordSet("not", "no", "never", "neither", "nobody", "cannot", "cant", "dont", "doesnt", "didnt", "wont", "isnt", "wasnt"),
		intensifiers: map[string]float64{
			"very": 1.5, "really": 1.5, "extremely": 2.0, "so": 1.3,
			"absolutely": 1.8, "completely": 1.8, "totally": 1.8,
		},
	}
}

// Score tokenizes text and nets positive against negative hits. A
// negation within the two preceding tokens flips a hit's polarity and
// an intensifier scales it.
func (a *lexiconAnalyzer) Score(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var total, hits float64
	for i, token := range tokens {
		polarity := 0.0
		if _, ok := a.positive[token]; ok {
			polarity = 1
		} else if _, ok := a.negative[token]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}

		weight := 1.0
		for back := 1; back <= 2 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if _, ok := a.negations[prev]; ok {
				polarity = -polarity
				break
			}
			if boost, ok := a.intensifiers[prev]; ok {
				weight = boost
			}
		}

		total += polarity * weight
		hits++
	}

	if hits == 0 {
		return 0
	}
	score := total / (hits + 1)
	return clamp(score, -1, 1)
}

// Label buckets a score into negative below -0.33, positive above 0.33
// and neutral in between.
func Label(score float64) string {
	switch {
	case score < -0.33:
		return "negative"
	case score > 0.33:
		return "positive"
	default:
		return "neutral"
	}
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	fields := strings.Fields(cleaned)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, "'", "")
	}
	return fields
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

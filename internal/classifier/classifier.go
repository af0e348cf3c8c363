// Package classifier predicts the owning department for an escalated
// conversation. The AI backend is optional; routing falls back to
// keyword rules whenever classification fails, times out or comes back
// under the confidence threshold.
package classifier

import "context"

// Prediction is a department guess with model confidence in [0, 1].
type Prediction struct {
	Department string  `json:"department"`
	Confidence float64 `json:"confidence"`
}

// Classifier predicts a department from a ticket summary. departments
// is the closed set of valid answers.
type Classifier interface {
	Classify(ctx context.Context, text string, departments []string) (*Prediction, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, text string, departments []string) (*Prediction, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, text string, departments []string) (*Prediction, error) {
	return f(ctx, text, departments)
}

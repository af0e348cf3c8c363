package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/observability"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

const classifierSystemPrompt = `You are a helpdesk routing assistant. Given a support ticket summary and a list of departments, pick the single department best suited to handle the ticket.

Respond with ONLY a JSON object, no prose:
{"department": "<one of the given department names>", "confidence": <0.0 to 1.0>}`

// AnthropicClassifier asks a Claude model to pick a department.
type AnthropicClassifier struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAnthropicClassifier builds the adapter. Callers should check
// cfg.APIKey themselves and skip construction when it is empty.
func NewAnthropicClassifier(cfg config.ClassifierConfig, logger *zap.Logger, metrics *observability.Metrics) *AnthropicClassifier {
	return &AnthropicClassifier{
		client:  anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:   cfg.Model,
		timeout: cfg.Timeout(),
		logger:  logger,
		metrics: metrics,
	}
}

// Classify sends the summary to the model and parses its JSON verdict.
// The call is bounded by the configured timeout; a slow model is a
// failed classification, not a slow ticket.
func (c *AnthropicClassifier) Classify(ctx context.Context, text string, departments []string) (*Prediction, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	userPrompt := fmt.Sprintf("Departments: %s\n\nTicket summary:\n%s", strings.Join(departments, ", "), text)

	started := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: classifierSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	c.metrics.RecordClassifier(time.Since(started), err)
	if err != nil {
		c.logger.Warn("classifier call failed", zap.Error(err))
		return nil, apperrors.NewTransientDependency("classifier", err)
	}

	var raw string
	for _, block := range message.Content {
		if block.Type == "text" {
			raw = block.Text
			break
		}
	}
	if raw == "" {
		return nil, apperrors.NewTransientDependency("classifier", fmt.Errorf("no text content in response"))
	}

	prediction, err := parsePrediction(raw)
	if err != nil {
		c.logger.Warn("classifier returned unparseable verdict", zap.String("raw", raw), zap.Error(err))
		return nil, apperrors.NewTransientDependency("classifier", err)
	}
	return prediction, nil
}

// parsePrediction tolerates markdown fences around the JSON verdict.
func parsePrediction(raw string) (*Prediction, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var prediction Prediction
	if err := json.Unmarshal([]byte(cleaned), &prediction); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if strings.TrimSpace(prediction.Department) == "" {
		return nil, fmt.Errorf("verdict missing department")
	}
	if prediction.Confidence < 0 {
		prediction.Confidence = 0
	}
	if prediction.Confidence > 1 {
		prediction.Confidence = 1
	}
	return &prediction, nil
}

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/access"
	"github.com/helpdesk-kit/triage-service/internal/config"
)

// QdrantSearcher queries a Qdrant collection over its REST API using
// payload filtering only. The RBAC clauses plus a full-text condition
// on the chunk body go into one scroll request; similarity search with
// embeddings stays outside this service.
type QdrantSearcher struct {
	baseURL    string
	collection string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
}

// NewQdrantSearcher builds the searcher from config.
func NewQdrantSearcher(cfg config.RetrievalConfig, logger *zap.Logger) *QdrantSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantSearcher{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}
}

type scrollRequest struct {
	Filter      access.Filter `json:"filter"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
}

type scrollResponse struct {
	Result struct {
		Points []struct {
			ID      json.RawMessage        `json:"id"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
	} `json:"result"`
	Status string `json:"status"`
}

// Search runs one filtered scroll against the collection.
func (q *QdrantSearcher) Search(ctx context.Context, query string, filter access.Filter, limit int) ([]Document, error) {
	withText := access.Merge(filter, access.Filter{
		Must: []access.Condition{access.MatchText("text", query)},
	})

	body, err := json.Marshal(scrollRequest{Filter: withText, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("encoding scroll request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/scroll", q.baseURL, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	started := time.Now()
	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed scrollResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	documents := make([]Document, 0, len(parsed.Result.Points))
	for _, point := range parsed.Result.Points {
		doc := Document{
			ID:         strings.Trim(string(point.ID), `"`),
			Text:       payloadString(point.Payload, "text"),
			Source:     payloadString(point.Payload, "source"),
			Department: payloadString(point.Payload, "department"),
			Visibility: payloadString(point.Payload, "visibility"),
			Roles:      payloadStrings(point.Payload, "allowed_roles"),
		}
		documents = append(documents, doc)
	}

	q.logger.Debug("qdrant scroll completed",
		zap.Int("results", len(documents)),
		zap.Duration("took", time.Since(started)))
	return documents, nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadStrings(payload map[string]interface{}, key string) []string {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

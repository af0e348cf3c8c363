package dto

import (
	"github.com/helpdesk-kit/triage-service/internal/access"
	"github.com/helpdesk-kit/triage-service/internal/retrieval"
)

// AnalyzeSentimentRequest payload.
type AnalyzeSentimentRequest struct {
	Text string `json:"text"`
}

// AnalyzeSentimentResponse reports the score in [-1, 1] and its label.
type AnalyzeSentimentResponse struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// KnowledgeSearchRequest payload. TicketID optionally widens the result
// set to documents scoped to that ticket.
type KnowledgeSearchRequest struct {
	Query    string `json:"query"`
	TicketID string `json:"ticket_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// KnowledgeSearchResponse returns matching documents plus the filter
// that was enforced, so callers can see what their context permitted.
type KnowledgeSearchResponse struct {
	Documents []retrieval.Document `json:"documents"`
	Filter    access.Filter        `json:"filter"`
}

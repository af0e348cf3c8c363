// Package retrieval serves knowledge-base lookups behind the RBAC
// filter. The search engine itself stays behind the Searcher interface;
// this layer only decides what a caller is allowed to see.
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/access"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// Document is one knowledge-base hit.
type Document struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Source     string   `json:"source"`
	Department string   `json:"department,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
	Roles      []string `json:"allowed_roles,omitempty"`
	Score      float64  `json:"score,omitempty"`
}

// Searcher runs a query under a prebuilt access filter.
type Searcher interface {
	Search(ctx context.Context, query string, filter access.Filter, limit int) ([]Document, error)
}

// Result pairs the documents with the filter that produced them, so
// callers can audit what restriction was applied.
type Result struct {
	Documents []Document    `json:"documents"`
	Filter    access.Filter `json:"filter"`
}

// Service builds the fail-closed RBAC predicate and delegates to the
// search collaborator.
type Service struct {
	searcher     Searcher
	defaultLimit int
	logger       *zap.Logger
}

// NewService constructs the retrieval service.
func NewService(searcher Searcher, defaultLimit int, logger *zap.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{searcher: searcher, defaultLimit: defaultLimit, logger: logger}
}

// Search validates the query, derives the caller's predicate and runs
// the lookup. PermissionError from filter construction surfaces
// untouched; it is never downgraded to an empty result.
func (s *Service) Search(ctx context.Context, userCtx access.Context, query, ticketID string, limit int) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required", nil)
	}

	filter, err := access.BuildSearchFilter(userCtx)
	if err != nil {
		return nil, err
	}
	filter = filter.WithTicketScope(ticketID)

	if limit <= 0 {
		limit = s.defaultLimit
	}

	if s.searcher == nil {
		return nil, apperrors.NewTransientDependency("knowledge search", nil)
	}
	documents, err := s.searcher.Search(ctx, query, filter, limit)
	if err != nil {
		return nil, apperrors.NewTransientDependency("knowledge search", err)
	}

	s.logger.Info("knowledge search",
		zap.String("user_id", userCtx.UserID),
		zap.Strings("roles", userCtx.Roles),
		zap.String("department", userCtx.Department),
		zap.Int("results", len(documents)))

	return &Result{Documents: documents, Filter: filter}, nil
}

package access

import (
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// Match is a Qdrant-style match clause: exactly one of Any, Value or
// Text is set.
type Match struct {
	Any   []string `json:"any,omitempty"`
	Value string   `json:"value,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// Condition binds a payload key to a match clause.
type Condition struct {
	Key   string `json:"key"`
	Match Match  `json:"match"`
}

// MatchAny builds a condition satisfied when the payload key holds any
// of the values.
func MatchAny(key string, values []string) Condition {
	return Condition{Key: key, Match: Match{Any: values}}
}

// MatchValue builds a condition satisfied on an exact value.
func MatchValue(key, value string) Condition {
	return Condition{Key: key, Match: Match{Value: value}}
}

// MatchText builds a full-text condition against an indexed field.
func MatchText(key, text string) Condition {
	return Condition{Key: key, Match: Match{Text: text}}
}

// Filter is the predicate handed to the search collaborator. The zero
// value means unrestricted and marshals to an empty object.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	Should  []Condition `json:"should,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0
}

// WithTicketScope adds an optional should-clause preferring chunks
// ingested for the given ticket.
func (f Filter) WithTicketScope(ticketID string) Filter {
	if ticketID == "" {
		return f
	}
	f.Should = append(f.Should, MatchValue("ticket_id", ticketID))
	return f
}

// Merge concatenates the clause lists of two filters.
func Merge(base, extra Filter) Filter {
	return Filter{
		Must:    append(append([]Condition{}, base.Must...), extra.Must...),
		Should:  append(append([]Condition{}, base.Should...), extra.Should...),
		MustNot: append(append([]Condition{}, base.MustNot...), extra.MustNot...),
	}
}

// BuildSearchFilter derives the RBAC predicate for a retrieval call.
// Unverified contexts are rejected before any clause is built. Admin
// contexts get an unrestricted filter. Everyone else must match on
// role, on visibility, and on department when the context has one.
func BuildSearchFilter(ctx Context) (Filter, error) {
	if !ctx.Verified || ctx.UserID == "" {
		return Filter{}, apperrors.NewPermissionDenied("unverified user context")
	}
	if ctx.IsAdmin() {
		return Filter{}, nil
	}

	must := []Condition{
		MatchAny("allowed_roles", ctx.Roles),
		MatchAny("visibility", ctx.AllowedVisibility()),
	}
	if ctx.Department != "" {
		must = append(must, MatchValue("department", ctx.Department))
	}
	return Filter{Must: must}, nil
}

package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", NewValidationError("priority is invalid", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"not found", NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{"unauthorized", NewUnauthorized("token expired"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"permission denied", NewPermissionDenied("unverified user context"), "PERMISSION_DENIED", http.StatusForbidden},
		{"consistency conflict", NewConsistencyConflict("ticket creation race", nil), "CONSISTENCY_CONFLICT", http.StatusConflict},
		{"transient dependency", NewTransientDependency("classifier", errors.New("timeout")), "TRANSIENT_DEPENDENCY", http.StatusServiceUnavailable},
		{"internal", NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var domainErr *DomainError
			require.ErrorAs(t, tc.err, &domainErr)
			assert.Equal(t, tc.code, domainErr.Code)
			assert.Equal(t, tc.status, domainErr.HTTPStatus)
			assert.True(t, IsCode(tc.err, tc.code))
		})
	}
}

func TestDomainErrorMessages(t *testing.T) {
	t.Run("not found names the resource", func(t *testing.T) {
		assert.EqualError(t, NewNotFound("department", nil), "department not found")
	})

	t.Run("wrapped cause shows in the message", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := NewTransientDependency("notifier", cause)
		assert.EqualError(t, err, "notifier temporarily unavailable: dial tcp: connection refused")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("details survive construction", func(t *testing.T) {
		err := NewValidationError("bad input", map[string]any{"field": "priority"})
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "priority", domainErr.Details["field"])
	})
}

func TestIsCode(t *testing.T) {
	assert.False(t, IsCode(nil, "NOT_FOUND"))
	assert.False(t, IsCode(errors.New("plain"), "NOT_FOUND"))
	assert.False(t, IsCode(NewUnauthorized("nope"), "NOT_FOUND"))

	wrapped := fmt.Errorf("load ticket: %w", NewNotFound("ticket", nil))
	assert.True(t, IsCode(wrapped, "NOT_FOUND"))
}

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		original := NewConsistencyConflict("race", nil)
		converted := ToDomainError(original)
		assert.Same(t, original, converted)
	})

	t.Run("wrapped domain errors are unwrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", NewPermissionDenied("nope"))
		converted := ToDomainError(wrapped)
		require.NotNil(t, converted)
		assert.Equal(t, "PERMISSION_DENIED", converted.Code)
	})

	t.Run("no rows becomes not found", func(t *testing.T) {
		converted := ToDomainError(fmt.Errorf("query: %w", pgx.ErrNoRows))
		require.NotNil(t, converted)
		assert.Equal(t, "NOT_FOUND", converted.Code)
		assert.Equal(t, http.StatusNotFound, converted.HTTPStatus)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		converted := ToDomainError(errors.New("disk full"))
		require.NotNil(t, converted)
		assert.Equal(t, "INTERNAL_ERROR", converted.Code)
		assert.Equal(t, http.StatusInternalServerError, converted.HTTPStatus)
		assert.EqualError(t, converted.Err, "disk full")
	})
}

func TestMapError(t *testing.T) {
	err := MapError(errors.New("boom"))
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
}

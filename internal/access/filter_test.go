package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext("user-1", []string{" agent ", "", "hr_specialist"}, " it ", true)

	assert.Equal(t, []string{"AGENT", "HR_SPECIALIST"}, ctx.Roles)
	assert.Equal(t, "IT", ctx.Department)
	assert.True(t, ctx.Verified)
	assert.True(t, ctx.HasRole("agent"))
	assert.False(t, ctx.HasRole("admin"))
}

func TestContextAllowedVisibility(t *testing.T) {
	cases := []struct {
		name  string
		roles []string
		want  []string
	}{
		{"admin sees every tier", []string{"ADMIN"}, []string{"PUBLIC", "INTERNAL", "CONFIDENTIAL"}},
		{"superadmin sees every tier", []string{"SUPERADMIN"}, []string{"PUBLIC", "INTERNAL", "CONFIDENTIAL"}},
		{"hr roles see internal", []string{"HR_SPECIALIST"}, []string{"PUBLIC", "INTERNAL"}},
		{"hr manager sees internal", []string{"HR_MANAGER"}, []string{"PUBLIC", "INTERNAL"}},
		{"everyone else sees public only", []string{"EMPLOYEE", "AGENT"}, []string{"PUBLIC"}},
		{"no roles see public only", nil, []string{"PUBLIC"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := NewContext("user-1", tc.roles, "", true)
			assert.Equal(t, tc.want, ctx.AllowedVisibility())
		})
	}
}

func TestBuildSearchFilter(t *testing.T) {
	t.Run("unverified context is rejected", func(t *testing.T) {
		_, err := BuildSearchFilter(NewContext("user-1", []string{"EMPLOYEE"}, "", false))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "PERMISSION_DENIED"))
	})

	t.Run("missing user id is rejected", func(t *testing.T) {
		_, err := BuildSearchFilter(NewContext("", []string{"EMPLOYEE"}, "", true))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "PERMISSION_DENIED"))
	})

	t.Run("admin gets an unrestricted filter", func(t *testing.T) {
		filter, err := BuildSearchFilter(NewContext("user-1", []string{"ADMIN"}, "IT", true))
		require.NoError(t, err)
		assert.True(t, filter.IsEmpty())
	})

	t.Run("regular user must match role visibility and department", func(t *testing.T) {
		filter, err := BuildSearchFilter(NewContext("user-1", []string{"employee"}, "it", true))
		require.NoError(t, err)

		require.Len(t, filter.Must, 3)
		assert.Equal(t, Condition{Key: "allowed_roles", Match: Match{Any: []string{"EMPLOYEE"}}}, filter.Must[0])
		assert.Equal(t, Condition{Key: "visibility", Match: Match{Any: []string{"PUBLIC"}}}, filter.Must[1])
		assert.Equal(t, Condition{Key: "department", Match: Match{Value: "IT"}}, filter.Must[2])
		assert.Empty(t, filter.Should)
		assert.Empty(t, filter.MustNot)
	})

	t.Run("no department relaxes the department clause", func(t *testing.T) {
		filter, err := BuildSearchFilter(NewContext("user-1", []string{"EMPLOYEE"}, "", true))
		require.NoError(t, err)

		require.Len(t, filter.Must, 2)
		for _, condition := range filter.Must {
			assert.NotEqual(t, "department", condition.Key)
		}
	})

	t.Run("hr roles widen visibility but stay scoped", func(t *testing.T) {
		filter, err := BuildSearchFilter(NewContext("user-1", []string{"HR_SPECIALIST"}, "HR", true))
		require.NoError(t, err)

		require.Len(t, filter.Must, 3)
		assert.Equal(t, []string{"PUBLIC", "INTERNAL"}, filter.Must[1].Match.Any)
	})

	t.Run("matching role and department never expose confidential", func(t *testing.T) {
		filter, err := BuildSearchFilter(NewContext("user-1", []string{"USER"}, "IT", true))
		require.NoError(t, err)

		require.Len(t, filter.Must, 3)
		assert.NotContains(t, filter.Must[1].Match.Any, "CONFIDENTIAL")
		assert.NotContains(t, filter.Must[1].Match.Any, "INTERNAL")
	})
}

func TestFilterHelpers(t *testing.T) {
	t.Run("zero value is empty", func(t *testing.T) {
		assert.True(t, Filter{}.IsEmpty())
	})

	t.Run("ticket scope adds a preference clause", func(t *testing.T) {
		filter := Filter{}.WithTicketScope("ticket-1")
		assert.False(t, filter.IsEmpty())
		require.Len(t, filter.Should, 1)
		assert.Equal(t, Condition{Key: "ticket_id", Match: Match{Value: "ticket-1"}}, filter.Should[0])
	})

	t.Run("blank ticket id is a no-op", func(t *testing.T) {
		assert.True(t, Filter{}.WithTicketScope("").IsEmpty())
	})

	t.Run("merge concatenates clause lists", func(t *testing.T) {
		base := Filter{Must: []Condition{MatchValue("department", "IT")}}
		extra := Filter{
			Must:    []Condition{MatchText("content", "vpn")},
			MustNot: []Condition{MatchValue("archived", "true")},
		}

		merged := Merge(base, extra)
		require.Len(t, merged.Must, 2)
		assert.Equal(t, "department", merged.Must[0].Key)
		assert.Equal(t, "content", merged.Must[1].Key)
		require.Len(t, merged.MustNot, 1)

		// Merge copies; the inputs stay intact.
		assert.Len(t, base.Must, 1)
		assert.Len(t, extra.Must, 1)
	})
}

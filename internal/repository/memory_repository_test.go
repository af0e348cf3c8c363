package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

func openTicket(conversationID string) *domain.Ticket {
	return &domain.Ticket{
		ConversationID: conversationID,
		Title:          "Escalated: test",
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityMedium,
		Reason:         "test",
	}
}

func TestMemoryTicketRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("second open ticket for a conversation violates the unique slot", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		require.NoError(t, repo.Create(ctx, openTicket("conv-1")))

		err := repo.Create(ctx, openTicket("conv-1"))
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("open tickets for different conversations coexist", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		require.NoError(t, repo.Create(ctx, openTicket("conv-1")))
		require.NoError(t, repo.Create(ctx, openTicket("conv-2")))
	})

	t.Run("resolved tickets do not occupy the slot", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		resolved := openTicket("conv-1")
		resolved.Status = domain.TicketStatusResolved
		require.NoError(t, repo.Create(ctx, resolved))
		require.NoError(t, repo.Create(ctx, openTicket("conv-1")))
	})
}

func TestMemoryTicketRepositoryFindReusable(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("newest open ticket inside the window wins", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		older := openTicket("conv-1")
		older.Status = domain.TicketStatusResolved
		require.NoError(t, repo.Create(ctx, older))
		repo.SetCreatedAt(older.ID, base.Add(-30*time.Minute))

		newer := openTicket("conv-1")
		require.NoError(t, repo.Create(ctx, newer))
		repo.SetCreatedAt(newer.ID, base.Add(-10*time.Minute))

		found, err := repo.FindReusable(ctx, "conv-1", base.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, newer.ID, found.ID)
	})

	t.Run("tickets older than the cutoff are invisible", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		stale := openTicket("conv-1")
		require.NoError(t, repo.Create(ctx, stale))
		repo.SetCreatedAt(stale.ID, base.Add(-4*time.Hour))

		_, err := repo.FindReusable(ctx, "conv-1", base.Add(-3*time.Hour))
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("non open tickets are invisible", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		resolved := openTicket("conv-1")
		resolved.Status = domain.TicketStatusResolved
		require.NoError(t, repo.Create(ctx, resolved))

		_, err := repo.FindReusable(ctx, "conv-1", base.Add(-time.Hour))
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	t.Run("other conversations are invisible", func(t *testing.T) {
		repo := NewMemoryTicketRepository()
		require.NoError(t, repo.Create(ctx, openTicket("conv-2")))

		_, err := repo.FindReusable(ctx, "conv-1", base.Add(-time.Hour))
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})
}

func TestMemoryTicketRepositoryMarkBreached(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := openTicket("conv-1")
	require.NoError(t, repo.Create(ctx, ticket))

	flagged, err := repo.MarkBreached(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, flagged)

	again, err := repo.MarkBreached(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, again, "the flag is write-once")

	unknown, err := repo.MarkBreached(ctx, "no-such-ticket")
	require.NoError(t, err)
	assert.False(t, unknown)

	stored, err := repo.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.SLABreached)
}

func TestMemoryTicketRepositoryListBreachCandidates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryTicketRepository()

	due := func(offset time.Duration) *time.Time {
		at := now.Add(offset)
		return &at
	}
	seed := func(conversationID string, dueAt *time.Time, status domain.TicketStatus, breached bool) *domain.Ticket {
		ticket := openTicket(conversationID)
		ticket.Status = status
		ticket.SLADueAt = dueAt
		ticket.SLABreached = breached
		require.NoError(t, repo.Create(ctx, ticket))
		return ticket
	}

	latest := seed("conv-1", due(-5*time.Minute), domain.TicketStatusOpen, false)
	earliest := seed("conv-2", due(-30*time.Minute), domain.TicketStatusOpen, false)
	middle := seed("conv-3", due(-15*time.Minute), domain.TicketStatusOpen, false)
	seed("conv-4", due(-20*time.Minute), domain.TicketStatusResolved, false)
	seed("conv-5", due(-20*time.Minute), domain.TicketStatusOpen, true)
	seed("conv-6", due(10*time.Minute), domain.TicketStatusOpen, false)
	seed("conv-7", nil, domain.TicketStatusOpen, false)

	t.Run("only overdue unflagged open tickets qualify, earliest due first", func(t *testing.T) {
		candidates, err := repo.ListBreachCandidates(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		assert.Equal(t, earliest.ID, candidates[0].ID)
		assert.Equal(t, middle.ID, candidates[1].ID)
		assert.Equal(t, latest.ID, candidates[2].ID)
	})

	t.Run("limit truncates from the most overdue end", func(t *testing.T) {
		candidates, err := repo.ListBreachCandidates(ctx, now, 2)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, earliest.ID, candidates[0].ID)
		assert.Equal(t, middle.ID, candidates[1].ID)
	})
}

func TestMemoryMessageRepositoryListRecentUserMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	add := func(conversationID string, sender domain.MessageSender, body string) *domain.Message {
		message := &domain.Message{ConversationID: conversationID, Sender: sender, Body: body}
		require.NoError(t, repo.Create(ctx, message))
		return message
	}

	first := add("conv-1", domain.SenderUser, "first")
	add("conv-1", domain.SenderAssistant, "reply")
	second := add("conv-1", domain.SenderUser, "second")
	third := add("conv-1", domain.SenderUser, "third")
	add("conv-2", domain.SenderUser, "elsewhere")

	t.Run("newest user messages first, assistant turns excluded", func(t *testing.T) {
		recent, err := repo.ListRecentUserMessages(ctx, "conv-1", 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, third.ID, recent[0].ID)
		assert.Equal(t, second.ID, recent[1].ID)
	})

	t.Run("zero limit defaults to three", func(t *testing.T) {
		recent, err := repo.ListRecentUserMessages(ctx, "conv-1", 0)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, first.ID, recent[2].ID)
	})
}

func TestMemoryMessageRepositoryUpdateSentiment(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()

	message := &domain.Message{ConversationID: "conv-1", Sender: domain.SenderUser, Body: "slow again"}
	require.NoError(t, repo.Create(ctx, message))
	require.NoError(t, repo.UpdateSentiment(ctx, message.ID, -0.5))

	stored, err := repo.GetByID(ctx, message.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SentimentScore)
	assert.InDelta(t, -0.5, *stored.SentimentScore, 1e-9)

	assert.ErrorIs(t, repo.UpdateSentiment(ctx, "no-such-message", 0.1), pgx.ErrNoRows)
}

func TestMemoryTicketRepositoryListWithFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	deptIT := "dept-it"
	agentA := "agent-a"

	routed := openTicket("conv-1")
	routed.DepartmentID = &deptIT
	routed.AssignedAgentID = &agentA
	require.NoError(t, repo.Create(ctx, routed))

	critical := openTicket("conv-2")
	critical.Priority = domain.TicketPriorityCritical
	require.NoError(t, repo.Create(ctx, critical))

	resolved := openTicket("conv-3")
	resolved.Status = domain.TicketStatusResolved
	require.NoError(t, repo.Create(ctx, resolved))

	t.Run("department and agent filters intersect", func(t *testing.T) {
		got, err := repo.ListWithFilter(ctx, TicketFilter{DepartmentID: &deptIT, AgentID: &agentA})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, routed.ID, got[0].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		got, err := repo.ListWithFilter(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusResolved}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, resolved.ID, got[0].ID)
	})

	t.Run("priority filter", func(t *testing.T) {
		got, err := repo.ListWithFilter(ctx, TicketFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityCritical}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, critical.ID, got[0].ID)
	})

	t.Run("offset past the end yields nothing", func(t *testing.T) {
		got, err := repo.ListWithFilter(ctx, TicketFilter{Limit: 10, Offset: 50})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemorySLAPolicyRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySLAPolicyRepository()
	deptIT := "dept-it"

	first := &domain.SLAPolicy{
		DepartmentID:         &deptIT,
		Priority:             domain.TicketPriorityHigh,
		FirstResponseMinutes: 30,
		ResolutionMinutes:    240,
		EscalationMinutes:    60,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	replacement := &domain.SLAPolicy{
		DepartmentID:         &deptIT,
		Priority:             domain.TicketPriorityHigh,
		FirstResponseMinutes: 15,
		ResolutionMinutes:    120,
		EscalationMinutes:    30,
	}
	require.NoError(t, repo.Upsert(ctx, replacement))
	assert.Equal(t, first.ID, replacement.ID, "same department and priority reuse the row")

	found, err := repo.Find(ctx, deptIT, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, 15, found.FirstResponseMinutes)

	_, err = repo.FindDefault(ctx, domain.TicketPriorityHigh)
	assert.ErrorIs(t, err, pgx.ErrNoRows, "a department policy is not a default")

	fallback := &domain.SLAPolicy{Priority: domain.TicketPriorityHigh, FirstResponseMinutes: 60}
	require.NoError(t, repo.Upsert(ctx, fallback))
	def, err := repo.FindDefault(ctx, domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, 60, def.FirstResponseMinutes)
}

func TestMemoryUserRepositoryListAgentLoads(t *testing.T) {
	ctx := context.Background()
	tickets := NewMemoryTicketRepository()
	users := NewMemoryUserRepository(tickets)

	deptIT := "dept-it"
	seedUser := func(id string, dept *string, status domain.UserStatus, roles ...domain.Role) {
		if len(roles) == 0 {
			roles = []domain.Role{domain.RoleAgent}
		}
		require.NoError(t, users.Create(ctx, &domain.User{
			ID:           id,
			Email:        fmt.Sprintf("%s@example.test", id),
			Roles:        roles,
			DepartmentID: dept,
			Status:       status,
		}))
	}
	seedLoad := func(agentID string, count int) {
		for i := 0; i < count; i++ {
			ticket := openTicket(fmt.Sprintf("conv-%s-%d", agentID, i))
			ticket.AssignedAgentID = &agentID
			require.NoError(t, tickets.Create(ctx, ticket))
		}
	}

	seedUser("agent-b", &deptIT, domain.UserStatusActive)
	seedUser("agent-a", &deptIT, domain.UserStatusActive)
	seedUser("agent-out", nil, domain.UserStatusActive)
	seedUser("agent-gone", &deptIT, domain.UserStatusSuspended)
	seedUser("employee", &deptIT, domain.UserStatusActive, domain.RoleEmployee)
	seedLoad("agent-a", 2)

	t.Run("department scope, load ascending, id breaks ties", func(t *testing.T) {
		loads, err := users.ListAgentLoads(ctx, &deptIT)
		require.NoError(t, err)
		require.Len(t, loads, 2)
		assert.Equal(t, AgentLoad{AgentID: "agent-b", OpenTickets: 0}, loads[0])
		assert.Equal(t, AgentLoad{AgentID: "agent-a", OpenTickets: 2}, loads[1])
	})

	t.Run("nil department spans every agent", func(t *testing.T) {
		loads, err := users.ListAgentLoads(ctx, nil)
		require.NoError(t, err)
		require.Len(t, loads, 3)
		assert.Equal(t, "agent-b", loads[0].AgentID)
		assert.Equal(t, "agent-out", loads[1].AgentID)
		assert.Equal(t, "agent-a", loads[2].AgentID)
	})
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

type conversationServiceFixture struct {
	t             *testing.T
	ctx           context.Context
	conversations *repository.MemoryConversationRepository
	messages      *repository.MemoryMessageRepository
	svc           *ConversationService
}

func newConversationServiceFixture(t *testing.T) *conversationServiceFixture {
	t.Helper()
	conversations := repository.NewMemoryConversationRepository()
	messages := repository.NewMemoryMessageRepository()
	svc := NewConversationService(ConversationDependencies{
		ConversationRepo: conversations,
		MessageRepo:      messages,
		Logger:           zap.NewNop(),
	})
	return &conversationServiceFixture{
		t:             t,
		ctx:           context.Background(),
		conversations: conversations,
		messages:      messages,
		svc:           svc,
	}
}

func employee(id string) *domain.User {
	return &domain.User{ID: id, Roles: []domain.Role{domain.RoleEmployee}, Status: domain.UserStatusActive}
}

func TestConversationServiceCreate(t *testing.T) {
	f := newConversationServiceFixture(t)
	owner := employee("user-1")

	t.Run("created open and owned by the actor", func(t *testing.T) {
		conversation, err := f.svc.Create(f.ctx, owner, "Printer trouble")
		require.NoError(t, err)
		assert.Equal(t, "user-1", conversation.UserID)
		assert.Equal(t, "Printer trouble", conversation.Title)
		assert.Equal(t, domain.ConversationStatusOpen, conversation.Status)
	})

	t.Run("blank titles get a default", func(t *testing.T) {
		conversation, err := f.svc.Create(f.ctx, owner, "   ")
		require.NoError(t, err)
		assert.Equal(t, "Support conversation", conversation.Title)
	})
}

func TestConversationServiceClose(t *testing.T) {
	f := newConversationServiceFixture(t)
	owner := employee("user-1")
	stranger := employee("user-2")
	agent := &domain.User{ID: "agent-1", Roles: []domain.Role{domain.RoleAgent}, Status: domain.UserStatusActive}
	admin := &domain.User{ID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}, Status: domain.UserStatusActive}

	conversation, err := f.svc.Create(f.ctx, owner, "Printer trouble")
	require.NoError(t, err)

	t.Run("unknown conversation is not found", func(t *testing.T) {
		_, err := f.svc.Close(f.ctx, owner, "no-such-conversation")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})

	t.Run("strangers cannot close", func(t *testing.T) {
		_, err := f.svc.Close(f.ctx, stranger, conversation.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "PERMISSION_DENIED"))
	})

	t.Run("agents read but do not close", func(t *testing.T) {
		_, err := f.svc.Close(f.ctx, agent, conversation.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "PERMISSION_DENIED"))
	})

	t.Run("the owner closes", func(t *testing.T) {
		closed, err := f.svc.Close(f.ctx, owner, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ConversationStatusClosed, closed.Status)
	})

	t.Run("closing twice is idempotent", func(t *testing.T) {
		closed, err := f.svc.Close(f.ctx, owner, conversation.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ConversationStatusClosed, closed.Status)
	})

	t.Run("admins close on behalf of users", func(t *testing.T) {
		other, err := f.svc.Create(f.ctx, owner, "Another issue")
		require.NoError(t, err)
		closed, err := f.svc.Close(f.ctx, admin, other.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ConversationStatusClosed, closed.Status)
	})
}

func TestConversationServiceListMessages(t *testing.T) {
	f := newConversationServiceFixture(t)
	owner := employee("user-1")
	stranger := employee("user-2")
	agent := &domain.User{ID: "agent-1", Roles: []domain.Role{domain.RoleAgent}, Status: domain.UserStatusActive}

	conversation, err := f.svc.Create(f.ctx, owner, "Printer trouble")
	require.NoError(t, err)
	for _, body := range []string{"it is jammed", "tried turning it off", "still jammed"} {
		require.NoError(t, f.messages.Create(f.ctx, &domain.Message{
			ConversationID: conversation.ID,
			Sender:         domain.SenderUser,
			Body:           body,
		}))
	}

	t.Run("owner reads the transcript oldest first", func(t *testing.T) {
		transcript, err := f.svc.ListMessages(f.ctx, owner, conversation.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, transcript, 3)
		assert.Equal(t, "it is jammed", transcript[0].Body)
		assert.Equal(t, "still jammed", transcript[2].Body)
	})

	t.Run("agents read for workbench context", func(t *testing.T) {
		transcript, err := f.svc.ListMessages(f.ctx, agent, conversation.ID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, transcript, 3)
	})

	t.Run("strangers are denied", func(t *testing.T) {
		_, err := f.svc.ListMessages(f.ctx, stranger, conversation.ID, 0, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, "PERMISSION_DENIED"))
	})

	t.Run("pagination clamps", func(t *testing.T) {
		transcript, err := f.svc.ListMessages(f.ctx, owner, conversation.ID, 2, 1)
		require.NoError(t, err)
		require.Len(t, transcript, 2)
		assert.Equal(t, "tried turning it off", transcript[0].Body)
	})
}

func TestConversationServiceList(t *testing.T) {
	f := newConversationServiceFixture(t)
	owner := employee("user-1")
	other := employee("user-2")

	for _, title := range []string{"first", "second"} {
		_, err := f.svc.Create(f.ctx, owner, title)
		require.NoError(t, err)
	}
	_, err := f.svc.Create(f.ctx, other, "not mine")
	require.NoError(t, err)

	mine, err := f.svc.List(f.ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, conversation := range mine {
		assert.Equal(t, "user-1", conversation.UserID)
	}
}

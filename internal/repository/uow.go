package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepos bundles the repositories a unit of work exposes inside its
// transaction scope.
type TxRepos struct {
	Tickets       TicketRepository
	TicketEvents  TicketEventRepository
	Conversations ConversationRepository
}

// UnitOfWork runs a function against transactionally scoped repositories
// while holding a per-conversation lock, so check-then-act sequences on
// one conversation are linearizable.
type UnitOfWork interface {
	WithConversationLock(ctx context.Context, conversationID string, fn func(TxRepos) error) error
}

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPgUnitOfWork builds a Postgres unit of work. The conversation lock
// is a transaction-scoped advisory lock; same-conversation callers on
// other nodes serialize on it too.
func NewPgUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgUnitOfWork{pool: pool}
}

func (u *pgUnitOfWork) WithConversationLock(ctx context.Context, conversationID string, fn func(TxRepos) error) error {
	return InTx(ctx, u.pool, func(tx pgx.Tx) error {
		if err := LockConversation(ctx, tx, conversationID); err != nil {
			return err
		}
		return fn(TxRepos{
			Tickets:       NewTicketRepository(tx),
			TicketEvents:  NewTicketEventRepository(tx),
			Conversations: NewConversationRepository(tx),
		})
	})
}

// memoryUnitOfWork serializes every call on one mutex, which is at least
// as strict as the per-conversation lock. It does not roll back partial
// writes on failure.
type memoryUnitOfWork struct {
	mu    sync.Mutex
	repos TxRepos
}

// NewMemoryUnitOfWork wraps the in-memory repositories for tests and
// the no-database dev mode.
func NewMemoryUnitOfWork(tickets *MemoryTicketRepository, events *MemoryTicketEventRepository, conversations *MemoryConversationRepository) UnitOfWork {
	return &memoryUnitOfWork{repos: TxRepos{
		Tickets:       tickets,
		TicketEvents:  events,
		Conversations: conversations,
	}}
}

func (u *memoryUnitOfWork) WithConversationLock(_ context.Context, _ string, fn func(TxRepos) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fn(u.repos)
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// The memory repositories back tests and the no-database dev mode. They
// mirror the Postgres behavior closely enough that services cannot tell
// them apart, including the one-OPEN-ticket-per-conversation guard.

// MemoryConversationRepository is an in-memory ConversationRepository.
type MemoryConversationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Conversation
	Now   func() time.Time
}

// NewMemoryConversationRepository builds an empty store.
func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{items: make(map[string]domain.Conversation), Now: time.Now}
}

func (r *MemoryConversationRepository) Create(_ context.Context, conversation *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation.ID = uuid.NewString()
	if conversation.Status == "" {
		conversation.Status = domain.ConversationStatusOpen
	}
	conversation.CreatedAt = r.Now()
	conversation.UpdatedAt = conversation.CreatedAt
	r.items[conversation.ID] = *conversation
	return nil
}

func (r *MemoryConversationRepository) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conversation, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &conversation, nil
}

func (r *MemoryConversationRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Conversation
	for _, c := range r.items {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return paginate(result, limit, offset, 20), nil
}

func (r *MemoryConversationRepository) UpdateStatus(_ context.Context, id string, status domain.ConversationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conversation.Status = status
	conversation.UpdatedAt = r.Now()
	r.items[id] = conversation
	return nil
}

func (r *MemoryConversationRepository) Touch(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conversation.UpdatedAt = r.Now()
	r.items[id] = conversation
	return nil
}

// MemoryMessageRepository is an in-memory MessageRepository.
type MemoryMessageRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Message
	seq   int
	order map[string]int
	Now   func() time.Time
}

// NewMemoryMessageRepository builds an empty store.
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		items: make(map[string]domain.Message),
		order: make(map[string]int),
		Now:   time.Now,
	}
}

func (r *MemoryMessageRepository) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = uuid.NewString()
	message.CreatedAt = r.Now()
	r.seq++
	r.order[message.ID] = r.seq
	r.items[message.ID] = *message
	return nil
}

func (r *MemoryMessageRepository) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	message, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &message, nil
}

func (r *MemoryMessageRepository) ListRecentUserMessages(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 3
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Message
	for _, m := range r.items {
		if m.ConversationID == conversationID && m.Sender == domain.SenderUser {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return r.order[result[i].ID] > r.order[result[j].ID] })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryMessageRepository) ListByConversation(_ context.Context, conversationID string, limit, offset int) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Message
	for _, m := range r.items {
		if m.ConversationID == conversationID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return r.order[result[i].ID] < r.order[result[j].ID] })
	return paginate(result, limit, offset, 50), nil
}

func (r *MemoryMessageRepository) UpdateSentiment(_ context.Context, id string, score float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	message.SentimentScore = &score
	r.items[id] = message
	return nil
}

// MemoryTicketRepository is an in-memory TicketRepository.
type MemoryTicketRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Ticket
	Now   func() time.Time
}

// NewMemoryTicketRepository builds an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{items: make(map[string]domain.Ticket), Now: time.Now}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.Status == domain.TicketStatusOpen {
		for _, existing := range r.items {
			if existing.ConversationID == ticket.ConversationID && existing.Status == domain.TicketStatusOpen {
				return &pgconn.PgError{Code: "23505", ConstraintName: "tickets_one_open_per_conversation"}
			}
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.items[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.Now()
	r.items[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) FindReusable(_ context.Context, conversationID string, cutoff time.Time) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *domain.Ticket
	for id := range r.items {
		ticket := r.items[id]
		if ticket.ConversationID != conversationID || ticket.Status != domain.TicketStatusOpen {
			continue
		}
		if ticket.CreatedAt.Before(cutoff) {
			continue
		}
		if best == nil || ticket.CreatedAt.After(best.CreatedAt) {
			copied := ticket
			best = &copied
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best, nil
}

func (r *MemoryTicketRepository) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.items {
		if filter.ConversationID != nil && ticket.ConversationID != *filter.ConversationID {
			continue
		}
		if filter.DepartmentID != nil && (ticket.DepartmentID == nil || *ticket.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.AgentID != nil && (ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != *filter.AgentID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		if filter.Breached != nil && ticket.SLABreached != *filter.Breached {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return paginate(result, filter.Limit, filter.Offset, 20), nil
}

func (r *MemoryTicketRepository) ListBreachCandidates(_ context.Context, now time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.items {
		if ticket.Status != domain.TicketStatusOpen || ticket.SLABreached || ticket.SLADueAt == nil {
			continue
		}
		if ticket.SLADueAt.Before(now) {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SLADueAt.Before(*result[j].SLADueAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryTicketRepository) MarkBreached(_ context.Context, ticketID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.items[ticketID]
	if !ok || ticket.SLABreached {
		return false, nil
	}
	ticket.SLABreached = true
	ticket.UpdatedAt = r.Now()
	r.items[ticketID] = ticket
	return true, nil
}

// SetCreatedAt rewrites a stored ticket's created_at, for tests that
// age tickets past the reuse window.
func (r *MemoryTicketRepository) SetCreatedAt(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket, ok := r.items[id]; ok {
		ticket.CreatedAt = at
		r.items[id] = ticket
	}
}

// MemoryTicketEventRepository is an in-memory TicketEventRepository.
type MemoryTicketEventRepository struct {
	mu     sync.RWMutex
	events []domain.TicketEvent
	Now    func() time.Time
}

// NewMemoryTicketEventRepository builds an empty store.
func NewMemoryTicketEventRepository() *MemoryTicketEventRepository {
	return &MemoryTicketEventRepository{Now: time.Now}
}

func (r *MemoryTicketEventRepository) Append(_ context.Context, event *domain.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = uuid.NewString()
	event.CreatedAt = r.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryTicketEventRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.TicketEvent
	for _, event := range r.events {
		if event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	return result, nil
}

// MemorySLAPolicyRepository is an in-memory SLAPolicyRepository.
type MemorySLAPolicyRepository struct {
	mu       sync.RWMutex
	policies []domain.SLAPolicy
}

// NewMemorySLAPolicyRepository builds an empty store.
func NewMemorySLAPolicyRepository() *MemorySLAPolicyRepository {
	return &MemorySLAPolicyRepository{}
}

func (r *MemorySLAPolicyRepository) Find(_ context.Context, departmentID string, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.policies {
		p := r.policies[i]
		if p.DepartmentID != nil && *p.DepartmentID == departmentID && p.Priority == priority {
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemorySLAPolicyRepository) FindDefault(_ context.Context, priority domain.TicketPriority) (*domain.SLAPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.policies {
		p := r.policies[i]
		if p.DepartmentID == nil && p.Priority == priority {
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemorySLAPolicyRepository) Upsert(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		existing := r.policies[i]
		sameDept := (existing.DepartmentID == nil && policy.DepartmentID == nil) ||
			(existing.DepartmentID != nil && policy.DepartmentID != nil && *existing.DepartmentID == *policy.DepartmentID)
		if sameDept && existing.Priority == policy.Priority {
			policy.ID = existing.ID
			r.policies[i] = *policy
			return nil
		}
	}
	policy.ID = uuid.NewString()
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *MemorySLAPolicyRepository) List(_ context.Context) ([]domain.SLAPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SLAPolicy, len(r.policies))
	copy(out, r.policies)
	return out, nil
}

// MemoryRoutingRuleRepository is an in-memory RoutingRuleRepository.
type MemoryRoutingRuleRepository struct {
	mu    sync.RWMutex
	rules []domain.RoutingRule
}

// NewMemoryRoutingRuleRepository builds an empty store.
func NewMemoryRoutingRuleRepository() *MemoryRoutingRuleRepository {
	return &MemoryRoutingRuleRepository{}
}

func (r *MemoryRoutingRuleRepository) Create(_ context.Context, rule *domain.RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = uuid.NewString()
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *MemoryRoutingRuleRepository) ListActive(_ context.Context) ([]domain.RoutingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.RoutingRule
	for _, rule := range r.rules {
		if rule.IsActive {
			result = append(result, rule)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// MemoryDepartmentRepository is an in-memory DepartmentRepository.
type MemoryDepartmentRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Department
}

// NewMemoryDepartmentRepository builds an empty store.
func NewMemoryDepartmentRepository() *MemoryDepartmentRepository {
	return &MemoryDepartmentRepository{items: make(map[string]domain.Department)}
}

func (r *MemoryDepartmentRepository) Create(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept.ID = uuid.NewString()
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	r.items[dept.ID] = *dept
	return nil
}

func (r *MemoryDepartmentRepository) Update(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	dept.UpdatedAt = time.Now()
	r.items[dept.ID] = *dept
	return nil
}

func (r *MemoryDepartmentRepository) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dept, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &dept, nil
}

func (r *MemoryDepartmentRepository) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dept := range r.items {
		if dept.IsActive && strings.EqualFold(dept.Name, name) {
			return &dept, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryDepartmentRepository) ListActive(_ context.Context) ([]domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Department
	for _, dept := range r.items {
		if dept.IsActive {
			result = append(result, dept)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// MemoryUserRepository is an in-memory UserRepository. Agent loads are
// computed against the paired ticket store.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	items   map[string]domain.User
	tickets *MemoryTicketRepository
}

// NewMemoryUserRepository builds an empty store counting loads from tickets.
func NewMemoryUserRepository(tickets *MemoryTicketRepository) *MemoryUserRepository {
	return &MemoryUserRepository{items: make(map[string]domain.User), tickets: tickets}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.items[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.items[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.items {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) ListAgentLoads(ctx context.Context, departmentID *string) ([]AgentLoad, error) {
	r.mu.RLock()
	var agents []domain.User
	for _, user := range r.items {
		if user.Status != domain.UserStatusActive || !user.HasRole(domain.RoleAgent) {
			continue
		}
		if departmentID != nil && (user.DepartmentID == nil || *user.DepartmentID != *departmentID) {
			continue
		}
		agents = append(agents, user)
	}
	r.mu.RUnlock()

	loads := make([]AgentLoad, 0, len(agents))
	for _, agent := range agents {
		count := 0
		if r.tickets != nil {
			open, err := r.tickets.ListWithFilter(ctx, TicketFilter{
				AgentID:  &agent.ID,
				Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
				Limit:    1000,
			})
			if err != nil {
				return nil, err
			}
			count = len(open)
		}
		loads = append(loads, AgentLoad{AgentID: agent.ID, OpenTickets: count})
	}
	sort.Slice(loads, func(i, j int) bool {
		if loads[i].OpenTickets != loads[j].OpenTickets {
			return loads[i].OpenTickets < loads[j].OpenTickets
		}
		return loads[i].AgentID < loads[j].AgentID
	})
	return loads, nil
}

func paginate[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range list {
		if p == priority {
			return true
		}
	}
	return false
}

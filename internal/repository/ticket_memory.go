package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// MemoryTicketStore keeps tickets in process memory. The mutex is the
// store's own atomicity primitive, standing in for a database row lock.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketStore creates an empty store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]domain.Ticket)}
}

func (s *MemoryTicketStore) Put(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrDuplicate)
	}
	s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (s *MemoryTicketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := ticket.Clone()
	return &out, nil
}

func (s *MemoryTicketStore) ConditionalUpdate(ctx context.Context, id string, expected domain.TicketStatus, change TicketTransition) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Status != expected {
		return nil, ErrConditionFailed
	}
	processedBy := change.ProcessedBy
	processedAt := change.ProcessedAt
	ticket.Status = change.Status
	ticket.ProcessedBy = &processedBy
	ticket.ProcessedAt = &processedAt
	s.tickets[id] = ticket

	out := ticket.Clone()
	return &out, nil
}

func (s *MemoryTicketStore) Scan(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if filter.Matches(&ticket) {
			result = append(result, ticket.Clone())
		}
	}
	return result, nil
}

func (s *MemoryTicketStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

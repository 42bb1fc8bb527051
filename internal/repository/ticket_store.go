package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConditionFailed is returned by ConditionalUpdate when the stored
	// status no longer matches the expected one.
	ErrConditionFailed = errors.New("condition failed")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("duplicate record")
)

// TicketTransition carries the fields written by a conditional update.
type TicketTransition struct {
	Status      domain.TicketStatus
	ProcessedBy string
	ProcessedAt time.Time
}

// TicketFilter is the scan predicate shared by every backend. Empty fields
// match everything.
type TicketFilter struct {
	Statuses        []domain.TicketStatus
	ExcludeStatuses []domain.TicketStatus
	Submitter       *string
}

// Matches evaluates the filter against a single ticket.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.Submitter != nil && t.Submitter != *f.Submitter {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if containsStatus(f.ExcludeStatuses, t.Status) {
		return false
	}
	return true
}

// where renders the filter as a SQL predicate. placeholder maps a 1-based
// argument position to the driver's bind syntax.
func (f TicketFilter) where(placeholder func(int) string) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if f.Submitter != nil {
		args = append(args, *f.Submitter)
		clauses = append(clauses, "submitter="+placeholder(len(args)))
	}
	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, status := range f.Statuses {
			args = append(args, string(status))
			placeholders[i] = placeholder(len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(f.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(f.ExcludeStatuses))
		for i, status := range f.ExcludeStatuses {
			args = append(args, string(status))
			placeholders[i] = placeholder(len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	return strings.Join(clauses, " AND "), args
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

// TicketStore is the storage contract the ticket engine depends on.
// ConditionalUpdate must apply the transition atomically and only when the
// stored status equals expected; callers never pair it with a prior read.
type TicketStore interface {
	Put(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	ConditionalUpdate(ctx context.Context, id string, expected domain.TicketStatus, change TicketTransition) (*domain.Ticket, error)
	Scan(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Ping(ctx context.Context) error
}

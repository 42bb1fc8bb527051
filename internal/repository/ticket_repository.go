package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

const ticketColumns = `id, submitter, amount, description, status, created_at, processed_by, processed_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed TicketStore.
func NewTicketRepository(pool *pgxpool.Pool) TicketStore {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Put(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, submitter, amount, description, status, created_at, processed_by, processed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Submitter,
		ticket.Amount,
		ticket.Description,
		string(ticket.Status),
		ticket.CreatedAt,
		ticket.ProcessedBy,
		ticket.ProcessedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrDuplicate)
	}
	return err
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

// ConditionalUpdate guards the write with the expected status inside the
// UPDATE itself. A zero-row result is classified afterwards.
func (r *ticketRepository) ConditionalUpdate(ctx context.Context, id string, expected domain.TicketStatus, change TicketTransition) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=$3, processed_by=$4, processed_at=$5
        WHERE id=$1 AND status=$2
        RETURNING ` + ticketColumns
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query,
		id,
		string(expected),
		string(change.Status),
		change.ProcessedBy,
		change.ProcessedAt,
	))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrConditionFailed
}

func (r *ticketRepository) Scan(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filter.where(func(n int) string { return fmt.Sprintf("$%d", n) })
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return r.pool.Ping(ctx)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		status string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Submitter,
		&ticket.Amount,
		&ticket.Description,
		&status,
		&ticket.CreatedAt,
		&ticket.ProcessedBy,
		&ticket.ProcessedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

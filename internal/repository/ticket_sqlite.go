package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository returns a TicketStore backed by an sqlite3 handle.
// Timestamps are stored as unix nanoseconds.
func NewSQLiteTicketRepository(db *sql.DB) TicketStore {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Put(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, submitter, amount, description, status, created_at, processed_by, processed_at)
        VALUES (?,?,?,?,?,?,?,?)`
	var processedAt sql.NullInt64
	if ticket.ProcessedAt != nil {
		processedAt = sql.NullInt64{Int64: ticket.ProcessedAt.UnixNano(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.Submitter,
		ticket.Amount,
		ticket.Description,
		string(ticket.Status),
		ticket.CreatedAt.UnixNano(),
		ticket.ProcessedBy,
		processedAt,
	)
	if isSQLiteKeyConflict(err) {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrDuplicate)
	}
	return err
}

func (r *sqliteTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=?`
	ticket, err := scanSQLiteTicket(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

func (r *sqliteTicketRepository) ConditionalUpdate(ctx context.Context, id string, expected domain.TicketStatus, change TicketTransition) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status=?, processed_by=?, processed_at=?
        WHERE id=? AND status=?
        RETURNING ` + ticketColumns
	ticket, err := scanSQLiteTicket(r.db.QueryRowContext(ctx, query,
		string(change.Status),
		change.ProcessedBy,
		change.ProcessedAt.UnixNano(),
		id,
		string(expected),
	))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=?)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrConditionFailed
}

func (r *sqliteTicketRepository) Scan(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := filter.where(func(int) string { return "?" })
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ` + where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *sqliteTicketRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row sqlScanner) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		status      string
		createdAt   int64
		processedBy sql.NullString
		processedAt sql.NullInt64
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Submitter,
		&ticket.Amount,
		&ticket.Description,
		&status,
		&createdAt,
		&processedBy,
		&processedAt,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.CreatedAt = time.Unix(0, createdAt).UTC()
	if processedBy.Valid {
		by := processedBy.String
		ticket.ProcessedBy = &by
	}
	if processedAt.Valid {
		at := time.Unix(0, processedAt.Int64).UTC()
		ticket.ProcessedAt = &at
	}
	return &ticket, nil
}

func isSQLiteKeyConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

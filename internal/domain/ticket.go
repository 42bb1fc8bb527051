package domain

import "time"

// TicketStatus enumerates lifecycle states for reimbursement tickets.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "Pending"
	TicketStatusApproved TicketStatus = "Approved"
	TicketStatusDenied   TicketStatus = "Denied"
)

// IsTerminal reports whether no further transition may leave the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusApproved || s == TicketStatusDenied
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusPending || s.IsTerminal()
}

// Ticket is the aggregate for a reimbursement request.
type Ticket struct {
	ID          string
	Submitter   string
	Amount      float64
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	ProcessedBy *string
	ProcessedAt *time.Time
}

// IsProcessed reports whether a manager has finalized the ticket.
func (t *Ticket) IsProcessed() bool {
	return t.Status.IsTerminal()
}

// Clone returns a deep copy so callers cannot alias stored pointers.
func (t Ticket) Clone() Ticket {
	out := t
	if t.ProcessedBy != nil {
		by := *t.ProcessedBy
		out.ProcessedBy = &by
	}
	if t.ProcessedAt != nil {
		at := *t.ProcessedAt
		out.ProcessedAt = &at
	}
	return out
}

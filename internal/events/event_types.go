package events

import (
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketProcessed EventType = "ticket_processed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Submitter   string  `json:"submitter"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// TicketProcessedPayload payload.
type TicketProcessedPayload struct {
	Submitter string              `json:"submitter"`
	Amount    float64             `json:"amount"`
	Decision  domain.TicketStatus `json:"decision"`
}

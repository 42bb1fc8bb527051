package dto

import (
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// SubmitTicketRequest payload. Amount is a pointer so a missing field can be
// told apart from zero.
type SubmitTicketRequest struct {
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
}

// ProcessTicketRequest payload shared by approve, deny and process.
type ProcessTicketRequest struct {
	TicketID string              `json:"ticketId"`
	Decision domain.TicketStatus `json:"decision"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	TicketID    string              `json:"ticketId"`
	Submitter   string              `json:"submitter"`
	Amount      float64             `json:"amount"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	ProcessedBy *string             `json:"processedBy,omitempty"`
	ProcessedAt *time.Time          `json:"processedAt,omitempty"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:    t.ID,
		Submitter:   t.Submitter,
		Amount:      t.Amount,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		ProcessedBy: t.ProcessedBy,
		ProcessedAt: t.ProcessedAt,
	}
}

// NewTicketList converts a slice, never returning nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

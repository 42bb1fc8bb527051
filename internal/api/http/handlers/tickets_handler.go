package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/api/dto"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/service"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util"
)

// TicketsHandler exposes the reimbursement ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Submit POST /tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Amount == nil {
		return apperrors.NewValidationError("amount is required", map[string]any{"field": "amount"})
	}

	ticket, err := h.service.Submit(c.UserContext(), *principal, service.SubmitInput{
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListPending GET /tickets/pending.
func (h *TicketsHandler) ListPending(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListPending(c.UserContext(), *principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// History GET /tickets/history?submitter=.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.History(c.UserContext(), *principal, service.HistoryQuery{
		Submitter: c.Query("submitter"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// Submissions GET /tickets/submissions.
func (h *TicketsHandler) Submissions(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.Submissions(c.UserContext(), *principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), *principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Approve PUT /tickets/approve.
func (h *TicketsHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, domain.TicketStatusApproved)
}

// Deny PUT /tickets/deny.
func (h *TicketsHandler) Deny(c *fiber.Ctx) error {
	return h.decide(c, domain.TicketStatusDenied)
}

// Process PUT /tickets/:id/process with a decision body.
func (h *TicketsHandler) Process(c *fiber.Ctx) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.ProcessTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Process(c.UserContext(), *principal, c.Params("id"), req.Decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func (h *TicketsHandler) decide(c *fiber.Ctx, decision domain.TicketStatus) error {
	principal, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.ProcessTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticketId is required", map[string]any{"field": "ticketId"})
	}
	ticket, err := h.service.Process(c.UserContext(), *principal, req.TicketID, decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func callerOf(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/observability"
	"github.com/spec-kit/reimbursement-service/internal/policy"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util"
)

// TicketService owns the reimbursement ticket lifecycle. It holds no
// locks: the store's conditional update is the only synchronization point.
type TicketService struct {
	tickets    repository.TicketStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	now        func() time.Time
	newID      func() string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketStore  repository.TicketStore
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	StoreTimeout time.Duration
	Clock        func() time.Time
	IDGenerator  func() string
}

// SubmitInput describes a new reimbursement request.
type SubmitInput struct {
	Amount      float64
	Description string
}

// HistoryQuery narrows a manager's history view to one submitter.
// Employees always see their own tickets and the field is ignored.
type HistoryQuery struct {
	Submitter string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketStore,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		timeout:    deps.StoreTimeout,
		now:        deps.Clock,
		newID:      deps.IDGenerator,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Submit records a new Pending ticket for the calling employee.
func (s *TicketService) Submit(ctx context.Context, caller domain.Principal, input SubmitInput) (*domain.Ticket, error) {
	if _, err := authorize(caller, policy.OpSubmit); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if err := validateSubmission(input.Amount, description); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:          s.newID(),
		Submitter:   caller.Username,
		Amount:      input.Amount,
		Description: description,
		Status:      domain.TicketStatusPending,
		CreatedAt:   s.now(),
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.tickets.Put(storeCtx, ticket); err != nil {
		s.logger.Error("ticket submit failed", zap.String("submitter", caller.Username), zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.logger.Info("ticket submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("submitter", ticket.Submitter),
		zap.Float64("amount", ticket.Amount))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    actorOf(caller),
		Payload: events.TicketSubmittedPayload{
			Submitter:   ticket.Submitter,
			Amount:      ticket.Amount,
			Description: ticket.Description,
		},
	})
	return ticket, nil
}

// ListPending returns pending tickets oldest first. Employees only see their own.
func (s *TicketService) ListPending(ctx context.Context, caller domain.Principal) ([]domain.Ticket, error) {
	scope, err := authorize(caller, policy.OpListPending)
	if err != nil {
		return nil, err
	}
	filter := repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusPending}}
	if scope == policy.ScopeSelf {
		filter.Submitter = &caller.Username
	}

	tickets, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(tickets, true)
	return tickets, nil
}

// History returns tickets newest first. Employees get every one of their own
// tickets; managers get all processed tickets, optionally for one submitter.
func (s *TicketService) History(ctx context.Context, caller domain.Principal, query HistoryQuery) ([]domain.Ticket, error) {
	scope, err := authorize(caller, policy.OpHistory)
	if err != nil {
		return nil, err
	}
	var filter repository.TicketFilter
	switch scope {
	case policy.ScopeSelf:
		filter.Submitter = &caller.Username
	case policy.ScopeAll:
		filter.ExcludeStatuses = []domain.TicketStatus{domain.TicketStatusPending}
		if submitter := strings.TrimSpace(query.Submitter); submitter != "" {
			filter.Submitter = &submitter
		}
	}

	tickets, err := s.scan(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(tickets, false)
	return tickets, nil
}

// Submissions returns every ticket the calling employee submitted, newest first.
func (s *TicketService) Submissions(ctx context.Context, caller domain.Principal) ([]domain.Ticket, error) {
	if _, err := authorize(caller, policy.OpSubmit); err != nil {
		return nil, err
	}
	tickets, err := s.scan(ctx, repository.TicketFilter{Submitter: &caller.Username})
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(tickets, false)
	return tickets, nil
}

// Get returns a single ticket. Tickets outside the caller's scope are
// reported as missing.
func (s *TicketService) Get(ctx context.Context, caller domain.Principal, ticketID string) (*domain.Ticket, error) {
	scope, err := authorize(caller, policy.OpView)
	if err != nil {
		return nil, err
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	ticket, err := s.tickets.Get(storeCtx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		s.logger.Error("ticket lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if scope == policy.ScopeSelf && ticket.Submitter != caller.Username {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// Process finalizes a Pending ticket with the manager's decision. The status
// check travels with the write; losing callers get ALREADY_PROCESSED and are
// never retried.
func (s *TicketService) Process(ctx context.Context, caller domain.Principal, ticketID string, decision domain.TicketStatus) (*domain.Ticket, error) {
	if _, err := authorize(caller, policy.OpProcess); err != nil {
		return nil, err
	}
	if !decision.IsTerminal() {
		return nil, apperrors.NewValidationError("decision must be Approved or Denied",
			map[string]any{"decision": string(decision)})
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, apperrors.NewValidationError("ticket id required", nil)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	ticket, err := s.tickets.ConditionalUpdate(storeCtx, ticketID, domain.TicketStatusPending, repository.TicketTransition{
		Status:      decision,
		ProcessedBy: caller.Username,
		ProcessedAt: s.now(),
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	case errors.Is(err, repository.ErrConditionFailed):
		s.metrics.RecordTransition(apperrors.CodeAlreadyProcessed)
		s.logger.Info("ticket already processed",
			zap.String("ticket_id", ticketID),
			zap.String("manager", caller.Username),
			zap.String("decision", string(decision)))
		return nil, apperrors.NewAlreadyProcessed(ticketID)
	case err != nil:
		s.metrics.RecordTransition(apperrors.CodeStoreUnavailable)
		s.logger.Error("ticket transition failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.metrics.RecordTransition(string(decision))
	s.logger.Info("ticket processed",
		zap.String("ticket_id", ticket.ID),
		zap.String("manager", caller.Username),
		zap.String("decision", string(decision)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketProcessed,
		TicketID: ticket.ID,
		Actor:    actorOf(caller),
		Payload: events.TicketProcessedPayload{
			Submitter: ticket.Submitter,
			Amount:    ticket.Amount,
			Decision:  decision,
		},
	})
	return ticket, nil
}

// Approve is Process with an Approved decision.
func (s *TicketService) Approve(ctx context.Context, caller domain.Principal, ticketID string) (*domain.Ticket, error) {
	return s.Process(ctx, caller, ticketID, domain.TicketStatusApproved)
}

// Deny is Process with a Denied decision.
func (s *TicketService) Deny(ctx context.Context, caller domain.Principal, ticketID string) (*domain.Ticket, error) {
	return s.Process(ctx, caller, ticketID, domain.TicketStatusDenied)
}

// Ping checks the ticket store.
func (s *TicketService) Ping(ctx context.Context) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.tickets.Ping(storeCtx)
}

func (s *TicketService) scan(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	tickets, err := s.tickets.Scan(storeCtx, filter)
	if err != nil {
		s.logger.Error("ticket scan failed", zap.Error(err))
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func authorize(caller domain.Principal, op policy.Operation) (policy.Scope, error) {
	if strings.TrimSpace(caller.Username) == "" {
		return policy.ScopeNone, apperrors.NewForbidden("authenticated caller required")
	}
	scope := policy.ScopeFor(caller.Role, op)
	if scope == policy.ScopeNone {
		return policy.ScopeNone, apperrors.NewForbidden("role " + string(caller.Role) + " may not " + string(op))
	}
	return scope, nil
}

func validateSubmission(amount float64, description string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return apperrors.NewValidationError("amount must be a positive number", map[string]any{"field": "amount"})
	}
	if description == "" {
		return apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	return nil
}

func sortByCreatedAt(tickets []domain.Ticket, ascending bool) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

func actorOf(caller domain.Principal) events.Actor {
	return events.Actor{Username: caller.Username, Role: caller.Role}
}

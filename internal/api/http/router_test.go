package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/api/http/handlers"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/observability"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/service"
)

type testServer struct {
	app     *fiber.App
	metrics *observability.Metrics
	authSvc *service.AuthService
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type ticketBody struct {
	TicketID    string  `json:"ticketId"`
	Submitter   string  `json:"submitter"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	ProcessedBy *string `json:"processedBy"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("unreachable") }

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 10, BcryptCost: 4}}
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketStore: repository.NewMemoryTicketStore(),
		Logger:      logger,
		Metrics:     metrics,
	})
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: repository.NewMemoryUserRepository()})

	if deps == nil {
		deps = map[string]handlers.Pinger{"store": ticketSvc}
	}
	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("reimbursement-service", "test", deps),
		Users:          handlers.NewUsersHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager()),
	})
	return &testServer{app: app, metrics: metrics, authSvc: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) employee(t *testing.T, username string) string {
	t.Helper()
	status, _ := s.do(t, nethttp.MethodPost, "/auth/register", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, nethttp.StatusCreated, status)
	return s.login(t, username)
}

func (s *testServer) manager(t *testing.T, username string) string {
	t.Helper()
	_, err := s.authSvc.CreateUser(context.Background(), username, "pw", domain.RoleManager)
	require.NoError(t, err)
	return s.login(t, username)
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	status, env := s.do(t, nethttp.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": "pw"})
	require.Equal(t, nethttp.StatusOK, status)
	var data struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Auth.Token)
	return data.Auth.Token
}

func decodeTicket(t *testing.T, env envelope) ticketBody {
	t.Helper()
	var ticket ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &ticket))
	return ticket
}

func decodeTickets(t *testing.T, env envelope) []ticketBody {
	t.Helper()
	var tickets []ticketBody
	require.NoError(t, json.Unmarshal(env.Data, &tickets))
	return tickets
}

func TestRouter_SubmitApproveFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.employee(t, "alice")
	bob := srv.manager(t, "bob")

	status, env := srv.do(t, nethttp.MethodPost, "/tickets", alice, map[string]any{"amount": 42.5, "description": "taxi"})
	require.Equal(t, nethttp.StatusCreated, status)
	created := decodeTicket(t, env)
	assert.Equal(t, "alice", created.Submitter)
	assert.Equal(t, "Pending", created.Status)
	assert.Nil(t, created.ProcessedBy)

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/pending", bob, nil)
	require.Equal(t, nethttp.StatusOK, status)
	pending := decodeTickets(t, env)
	require.Len(t, pending, 1)
	assert.Equal(t, created.TicketID, pending[0].TicketID)

	status, env = srv.do(t, nethttp.MethodPut, "/tickets/approve", bob, map[string]string{"ticketId": created.TicketID})
	require.Equal(t, nethttp.StatusOK, status)
	approved := decodeTicket(t, env)
	assert.Equal(t, "Approved", approved.Status)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, "bob", *approved.ProcessedBy)

	status, env = srv.do(t, nethttp.MethodPut, "/tickets/deny", bob, map[string]string{"ticketId": created.TicketID})
	assert.Equal(t, nethttp.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ALREADY_PROCESSED", env.Error.Code)

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/history", alice, nil)
	require.Equal(t, nethttp.StatusOK, status)
	history := decodeTickets(t, env)
	require.Len(t, history, 1)
	assert.Equal(t, "Approved", history[0].Status)

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/previous?submitter=alice", bob, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, decodeTickets(t, env), 1)

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/"+created.TicketID, alice, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Approved", decodeTicket(t, env).Status)

	status, env = srv.do(t, nethttp.MethodGet, "/metrics", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	var snap observability.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, int64(1), snap.Transitions["Approved"])
	assert.Equal(t, int64(1), snap.Transitions["ALREADY_PROCESSED"])
}

func TestRouter_ProcessWithDecision(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.employee(t, "alice")
	bob := srv.manager(t, "bob")

	_, env := srv.do(t, nethttp.MethodPost, "/tickets/submit", alice, map[string]any{"amount": 10, "description": "lunch"})
	id := decodeTicket(t, env).TicketID

	status, env := srv.do(t, nethttp.MethodPut, "/tickets/"+id+"/process", bob, map[string]string{"decision": "Pending"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = srv.do(t, nethttp.MethodPut, "/tickets/"+id+"/process", bob, map[string]string{"decision": "Denied"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Denied", decodeTicket(t, env).Status)
}

func TestRouter_ConcurrentApproveDeny(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.employee(t, "alice")
	bob := srv.manager(t, "bob")
	carol := srv.manager(t, "carol")

	_, env := srv.do(t, nethttp.MethodPost, "/tickets", alice, map[string]any{"amount": 42.5, "description": "taxi"})
	id := decodeTicket(t, env).TicketID

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i, call := range []struct{ token, path string }{{bob, "/tickets/approve"}, {carol, "/tickets/deny"}} {
		wg.Add(1)
		go func(i int, token, path string) {
			defer wg.Done()
			statuses[i], _ = srv.do(t, nethttp.MethodPut, path, token, map[string]string{"ticketId": id})
		}(i, call.token, call.path)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{nethttp.StatusOK, nethttp.StatusConflict}, statuses)
}

func TestRouter_ErrorStatuses(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.employee(t, "alice")
	bob := srv.manager(t, "bob")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"missing token", nethttp.MethodGet, "/tickets/pending", "", nil, nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", nethttp.MethodGet, "/tickets/pending", "garbage", nil, nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"negative amount", nethttp.MethodPost, "/tickets", alice, map[string]any{"amount": -5, "description": "x"}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing amount", nethttp.MethodPost, "/tickets", alice, map[string]any{"description": "x"}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing description", nethttp.MethodPost, "/tickets", alice, map[string]any{"amount": 3}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"manager submits", nethttp.MethodPost, "/tickets", bob, map[string]any{"amount": 3, "description": "x"}, nethttp.StatusForbidden, "FORBIDDEN"},
		{"employee approves", nethttp.MethodPut, "/tickets/approve", alice, map[string]string{"ticketId": "T1"}, nethttp.StatusForbidden, "FORBIDDEN"},
		{"employee denies", nethttp.MethodPut, "/tickets/deny", alice, map[string]string{"ticketId": "T1"}, nethttp.StatusForbidden, "FORBIDDEN"},
		{"unknown ticket", nethttp.MethodPut, "/tickets/approve", bob, map[string]string{"ticketId": "T99"}, nethttp.StatusNotFound, "NOT_FOUND"},
		{"missing ticket id", nethttp.MethodPut, "/tickets/approve", bob, map[string]string{}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown route", nethttp.MethodGet, "/nowhere", "", nil, nethttp.StatusNotFound, "NOT_FOUND"},
		{"bad login", nethttp.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "nope"}, nethttp.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty register", nethttp.MethodPost, "/auth/register", "", map[string]string{"username": ""}, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate register", nethttp.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "pw"}, nethttp.StatusConflict, "CONFLICT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := srv.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}

	snap := srv.metrics.Snapshot()
	assert.NotEmpty(t, snap.Errors)
}

func TestRouter_TicketVisibility(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.employee(t, "alice")
	dave := srv.employee(t, "dave")

	_, env := srv.do(t, nethttp.MethodPost, "/tickets", alice, map[string]any{"amount": 8, "description": "coffee"})
	id := decodeTicket(t, env).TicketID

	status, _ := srv.do(t, nethttp.MethodGet, "/tickets/"+id, dave, nil)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/pending", dave, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Empty(t, decodeTickets(t, env))

	status, env = srv.do(t, nethttp.MethodGet, "/tickets/submissions", alice, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, decodeTickets(t, env), 1)
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, nil)
	status, _ := srv.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	status, _ = srv.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	degraded := newTestServer(t, map[string]handlers.Pinger{"redis": failingPinger{}})
	status, env := degraded.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", env.Error.Code)
}

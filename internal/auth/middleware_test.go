package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/policy"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util"
)

func newTestApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var de *apperrors.DomainError
			if errors.As(err, &de) {
				return c.Status(de.HTTPStatus).SendString(de.Code)
			}
			return c.Status(http.StatusInternalServerError).SendString(err.Error())
		},
	})
	mw := NewAuthMiddleware(tm)
	app.Get("/whoami", mw.Handle, func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return errors.New("no principal")
		}
		return c.SendString(p.Username + "/" + string(p.Role))
	})
	app.Put("/process", mw.Handle, RequireOperation(policy.OpProcess), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	app := newTestApp(tm)
	employeeToken, _, err := tm.GenerateToken("alice", domain.RoleEmployee)
	require.NoError(t, err)
	managerToken, _, err := tm.GenerateToken("bob", domain.RoleManager)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		header string
		status int
	}{
		{"missing header", http.MethodGet, "/whoami", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodGet, "/whoami", "Basic abc", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/whoami", "Bearer nope", http.StatusUnauthorized},
		{"valid", http.MethodGet, "/whoami", "Bearer " + employeeToken, http.StatusOK},
		{"employee cannot process", http.MethodPut, "/process", "Bearer " + employeeToken, http.StatusForbidden},
		{"manager can process", http.MethodPut, "/process", "Bearer " + managerToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

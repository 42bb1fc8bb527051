package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/policy"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util"
)

// RequireOperation rejects callers whose role the access policy denies op.
// The ticket service repeats the check; this only fails fast at the edge.
func RequireOperation(op policy.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !policy.Allowed(principal.Role, op) {
			return apperrors.NewForbidden("access denied: insufficient role")
		}
		return c.Next()
	}
}

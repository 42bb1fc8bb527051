package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/api/http/handlers"
	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Show)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)

	submit := auth.RequireOperation(policy.OpSubmit)
	tickets.Post("/", submit, cfg.Tickets.Submit)
	tickets.Post("/submit", submit, cfg.Tickets.Submit)
	tickets.Get("/submissions", submit, cfg.Tickets.Submissions)

	tickets.Get("/pending", auth.RequireOperation(policy.OpListPending), cfg.Tickets.ListPending)

	history := auth.RequireOperation(policy.OpHistory)
	tickets.Get("/history", history, cfg.Tickets.History)
	tickets.Get("/previous", history, cfg.Tickets.History)

	process := auth.RequireOperation(policy.OpProcess)
	tickets.Put("/approve", process, cfg.Tickets.Approve)
	tickets.Put("/deny", process, cfg.Tickets.Deny)
	tickets.Put("/:id/process", process, cfg.Tickets.Process)

	tickets.Get("/:id", auth.RequireOperation(policy.OpView), cfg.Tickets.Get)
}

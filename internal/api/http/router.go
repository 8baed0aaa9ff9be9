package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portal-service/internal/api/http/handlers"
	"github.com/spec-kit/portal-service/internal/auth"
	"github.com/spec-kit/portal-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Milestones     *handlers.MilestonesHandler
	Payments       *handlers.PaymentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	// Provider webhook; authenticated by signature upstream, not by bearer token.
	app.Post("/payments/callback", cfg.Payments.Callback)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	tickets := protected.Group("/tickets")
	tickets.Post("", auth.RequireRole(domain.RoleClient), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)

	milestones := protected.Group("/milestones")
	milestones.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Milestones.CreateMilestone)
	milestones.Get("", cfg.Milestones.ListMilestones)
	milestones.Get("/:id", cfg.Milestones.GetMilestone)
	milestones.Post("/:id/validate", cfg.Milestones.Validate)

	payments := protected.Group("/payments")
	payments.Post("/checkout", auth.RequireRole(domain.RoleAdmin), cfg.Payments.Checkout)
	payments.Get("/:id", cfg.Payments.GetPayment)
}

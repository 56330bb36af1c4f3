package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-bot/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Admin  *handlers.AdminHandler
	Tokens *auth.TokenManager
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	admin := app.Group("/admin")
	admin.Post("/login", cfg.Admin.Login)

	protected := admin.Group("", auth.RequireAdmin(cfg.Tokens))
	protected.Get("/tickets", cfg.Admin.ListTickets)
	protected.Get("/stats", cfg.Admin.Stats)
}

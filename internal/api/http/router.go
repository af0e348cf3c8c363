package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helpdesk-kit/triage-service/internal/api/http/handlers"
	"github.com/helpdesk-kit/triage-service/internal/auth"
	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Conversations  *handlers.ConversationsHandler
	Tickets        *handlers.TicketsHandler
	Search         *handlers.SearchHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Probes, metrics and the auth
// entrypoints are public; everything else requires a valid token, and
// the ticket workbench additionally requires the agent role.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authProtected.Post("/password", cfg.Auth.ChangePassword)
	authProtected.Get("/me", cfg.Auth.Me)

	api := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	conversations := api.Group("/conversations")
	conversations.Post("", cfg.Conversations.CreateConversation)
	conversations.Get("", cfg.Conversations.ListConversations)
	conversations.Post("/:id/messages", cfg.Conversations.PostMessage)
	conversations.Get("/:id/messages", cfg.Conversations.ListMessages)
	conversations.Post("/:id/close", cfg.Conversations.CloseConversation)

	api.Post("/sentiment/analyze", cfg.Search.AnalyzeSentiment)
	api.Post("/knowledge/search", cfg.Search.SearchKnowledge)
	api.Get("/access/me", cfg.Search.AccessProfile)
	api.Get("/departments", cfg.Tickets.ListDepartments)

	// Ticket detail stays outside the agent gate so a user can follow
	// the ticket opened for their own conversation.
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)

	workbench := api.Group("/tickets", auth.RequireRole(domain.RoleAgent))
	workbench.Get("", cfg.Tickets.ListTickets)
	workbench.Post("/:id/escalate", cfg.Tickets.EscalateTicket)
	workbench.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	workbench.Patch("/:id/priority", cfg.Tickets.UpdatePriority)
	workbench.Post("/:id/assign", cfg.Tickets.AssignTicket)
}

package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/api/http/handlers"
	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/realtime"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Sessions       *handlers.SessionsHandler
	Analytics      *handlers.AnalyticsHandler
	Media          *handlers.MediaHandler
	Socket         *realtime.SocketHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Every mutating route passes through
// BlockReadOnly so member accounts stay read-only even if a scope slips
// into their set.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	app.Get("/users", cfg.AuthMiddleware.Handle, auth.RequireAnyScope("users:read", "users:read:assigned"), cfg.Auth.ListUsers)
	app.Get("/users/:id", cfg.AuthMiddleware.Handle, cfg.Auth.GetUser)
	app.Patch("/users/:id", cfg.AuthMiddleware.Handle, auth.BlockReadOnly(), cfg.Auth.UpdateUser)
	app.Delete("/users/:id", cfg.AuthMiddleware.Handle, auth.BlockReadOnly(), auth.RequireScope("users:*"), cfg.Auth.DeleteUser)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", auth.BlockReadOnly(), auth.RequireScope("tickets:create"), cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", auth.BlockReadOnly(), cfg.Tickets.Update)
	tickets.Post("/:id/assign", auth.BlockReadOnly(), auth.RequireRole(domain.RoleAdmin, domain.RoleAgent), cfg.Tickets.Assign)
	tickets.Get("/:id/messages", cfg.Tickets.Messages)
	tickets.Post("/:id/messages", auth.BlockReadOnly(), auth.RequireAnyScope("messages:create", "messages:create:own"), cfg.Tickets.AddMessage)
	tickets.Post("/:id/messages/read", auth.BlockReadOnly(), cfg.Tickets.MarkRead)
	tickets.Get("/:id/audit", auth.RequireScope("audit:read"), cfg.Tickets.AuditTrail)

	sessions := app.Group("/sessions", cfg.AuthMiddleware.Handle)
	sessions.Post("/", auth.BlockReadOnly(), auth.RequireScope("sessions:create"), cfg.Sessions.Create)
	sessions.Get("/active", cfg.Sessions.ListActive)
	sessions.Get("/:id", cfg.Sessions.Get)
	sessions.Post("/:id/join", auth.BlockReadOnly(), auth.RequireAnyScope("sessions:join:own", "sessions:join:assigned"), cfg.Sessions.Join)
	sessions.Post("/:id/end", auth.BlockReadOnly(), auth.RequireAnyScope("sessions:end:own", "sessions:end:assigned"), cfg.Sessions.End)
	sessions.Get("/:id/chat", cfg.Sessions.ChatHistory)

	analytics := app.Group("/analytics", cfg.AuthMiddleware.Handle)
	analytics.Get("/dashboard", auth.RequireRole(domain.RoleAdmin), auth.RequireScope("analytics:read"), cfg.Analytics.Dashboard)

	media := app.Group("/media", cfg.AuthMiddleware.Handle)
	media.Post("/token", auth.BlockReadOnly(), cfg.Media.Token)

	if cfg.Socket != nil {
		app.Get("/ws", cfg.Socket.Upgrade, websocket.New(cfg.Socket.Handle))
	}
}

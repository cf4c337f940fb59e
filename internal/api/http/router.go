package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/aftersales-service/internal/api/http/handlers"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Cases          *handlers.CasesHandler
	ProviderCases  *handlers.ProviderCasesHandler
	AdminCases     *handlers.AdminCasesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Post("/password/reset/request", cfg.Accounts.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Accounts.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protectedAuth.Post("/password/change", cfg.Accounts.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	// Client endpoints.
	client := api.Group("/cases", auth.RequireRole(domain.RoleClient))
	client.Post("", cfg.Cases.CreateCase)
	client.Get("", cfg.Cases.ListCases)
	client.Get("/:id", cfg.Cases.GetCase)
	client.Post("/:id/close", cfg.Cases.CloseCase)
	client.Post("/:id/damage", cfg.Cases.ReportDamage)
	client.Post("/:id/notes", cfg.Cases.AddNote)

	// Inbox, any authenticated role.
	inbox := api.Group("/notifications", auth.RequireAnyRole())
	inbox.Get("", cfg.Cases.ListNotifications)
	inbox.Post("/:id/read", cfg.Cases.MarkNotificationRead)

	// Provider endpoints.
	provider := api.Group("/provider/cases", auth.RequireRole(domain.RoleProvider))
	provider.Get("", cfg.ProviderCases.ListCases)
	provider.Get("/:id", cfg.ProviderCases.GetCase)
	provider.Post("/:id/respond", cfg.ProviderCases.Respond)
	provider.Post("/:id/start", cfg.ProviderCases.StartProgress)
	provider.Post("/:id/resolve", cfg.ProviderCases.Resolve)
	provider.Post("/:id/intervention", cfg.ProviderCases.ScheduleIntervention)
	provider.Post("/:id/intervention/complete", cfg.ProviderCases.CompleteIntervention)
	provider.Post("/:id/notes", cfg.ProviderCases.AddNote)
	provider.Get("/:id/holds", cfg.ProviderCases.ListHolds)

	// Internal staff endpoints.
	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("/cases", cfg.AdminCases.ListCases)
	admin.Get("/cases/:id", cfg.AdminCases.GetCase)
	admin.Post("/cases/:id/start", cfg.AdminCases.StartProgress)
	admin.Post("/cases/:id/resolve", cfg.AdminCases.Resolve)
	admin.Post("/cases/:id/close", cfg.AdminCases.Close)
	admin.Post("/cases/:id/takeover", cfg.AdminCases.Takeover)
	admin.Post("/cases/:id/notes", cfg.AdminCases.AddNote)
	admin.Get("/cases/:id/arbitration", cfg.AdminCases.GetArbitration)
	admin.Get("/cases/:id/holds", cfg.AdminCases.ListHolds)
	admin.Get("/cases/:id/credit-notes", cfg.AdminCases.ListCreditNotes)
	admin.Post("/arbitrations/:id/decide", cfg.AdminCases.Arbitrate)
	admin.Post("/arbitrations/:id/apply", cfg.AdminCases.ApplyArbitration)
	admin.Get("/alerts", cfg.AdminCases.ListAlerts)
	admin.Post("/alerts/:id/ack", cfg.AdminCases.AcknowledgeAlert)
	admin.Post("/holds/:id/release", cfg.AdminCases.ReleaseHold)
}

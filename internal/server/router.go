package server

import (
	"net/http"

	"github.com/dimitrije/playdate-api/internal/config"
	"github.com/dimitrije/playdate-api/internal/handlers"
	authmw "github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/dimitrije/playdate-api/internal/sse"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"golang.org/x/time/rate"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	JWT         *services.JWTService
	Directory   handlers.DirectoryServiceInterface
	Connections handlers.ConnectionServiceInterface
	Activities  handlers.ActivityServiceInterface
	Invitations handlers.InvitationServiceInterface
	Hub         *sse.Hub
}

// NewRouter builds the drift app. Reads go through the auth middleware only;
// writes are additionally rate limited per client IP.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	guardianHandler := handlers.NewGuardianHandler(deps.Directory)
	connectionHandler := handlers.NewConnectionHandler(deps.Connections)
	activityHandler := handlers.NewActivityHandler(deps.Activities)
	invitationHandler := handlers.NewInvitationHandler(deps.Invitations)
	sseHandler := handlers.NewSSEHandler(deps.Hub)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	reads := api.Group("")
	reads.Use(authmw.Auth(deps.JWT))

	reads.Get("/me", guardianHandler.GetMe)
	reads.Get("/connection-requests", connectionHandler.ListIncoming)
	reads.Get("/connections", connectionHandler.ListConnections)
	reads.Get("/activities/:id", activityHandler.Get)
	reads.Get("/activities/:id/participants", invitationHandler.Participants)
	reads.Get("/children/:id/activities", activityHandler.ListByHost)
	reads.Get("/invitations", invitationHandler.List)
	reads.Get("/events", sseHandler.Connect)

	writes := api.Group("")
	writes.Use(authmw.Auth(deps.JWT))
	writes.Use(authmw.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, cfg.TrustProxy))

	writes.Post("/children", guardianHandler.CreateChild)
	writes.Post("/connection-requests", connectionHandler.CreateRequest)
	writes.Post("/connection-requests/:id/respond", connectionHandler.Respond)
	writes.Post("/activities", activityHandler.Create)
	writes.Post("/activities/:id/invite", invitationHandler.Invite)
	writes.Post("/activities/:id/pending-invitations", invitationHandler.CreatePending)
	writes.Post("/invitations/:id/respond", invitationHandler.Respond)
	writes.Post("/invitations/:id/viewed", invitationHandler.MarkViewed)

	return app
}

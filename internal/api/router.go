// Package api serves focuslock over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focuslock/internal/clock"
	"github.com/eliteGoblin/focusd/focuslock/internal/logbuf"
	"github.com/eliteGoblin/focusd/focuslock/internal/usecase"
)

// Services are the use cases exposed by the router. Logs may be nil.
type Services struct {
	Sessions  *usecase.SessionManager
	Rules     *usecase.RuleService
	Favorites *usecase.FavoriteService
	Settings  *usecase.SettingsService
	Blocks    *usecase.BlockService
	Apps      *usecase.AppCatalog
	Logs      *logbuf.Buffer
	Clock     clock.Clock
	Version   string
}

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(svc Services, token string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /api/health)
	r.Use(RequestID)
	r.Use(CORS)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(svc.Version, svc.Clock)
	sessionH := NewSessionHandler(svc.Sessions, svc.Clock, logger)
	ruleH := NewRuleHandler(svc.Rules, svc.Blocks, logger)
	favoriteH := NewFavoriteHandler(svc.Favorites, logger)
	settingsH := NewSettingsHandler(svc.Settings, logger)
	appH := NewAppHandler(svc.Apps, logger)

	r.Route("/api", func(r chi.Router) {
		// Unauthenticated routes
		r.Get("/health", healthH.Health)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(token))

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionH.List)
				r.Post("/", sessionH.Create)
				r.Get("/current", sessionH.Current)
				r.Get("/{id}", sessionH.Get)
				r.Patch("/{id}", sessionH.Update)
				r.Post("/{id}/pause", sessionH.Action(usecase.ActionPause))
				r.Post("/{id}/resume", sessionH.Action(usecase.ActionResume))
				r.Post("/{id}/complete", sessionH.Action(usecase.ActionComplete))
				r.Post("/{id}/cancel", sessionH.Action(usecase.ActionCancel))
			})

			r.Route("/block-rules", func(r chi.Router) {
				r.Get("/", ruleH.List)
				r.Post("/", ruleH.Add)
				r.Patch("/{id}", ruleH.Update)
				r.Delete("/{id}", ruleH.Remove)
			})
			r.Get("/blocks", ruleH.Effective)
			r.Get("/blocked-apps", ruleH.BlockedApps)

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", favoriteH.List)
				r.Post("/", favoriteH.Add)
				r.Patch("/{id}", favoriteH.Update)
				r.Delete("/{id}", favoriteH.Remove)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsH.List)
				r.Post("/", settingsH.Set)
				r.Get("/{key}", settingsH.Get)
			})

			r.Route("/apps", func(r chi.Router) {
				r.Get("/", appH.List)
				r.Get("/search", appH.Search)
			})

			if svc.Logs != nil {
				logH := NewLogHandler(svc.Logs)
				r.Get("/logs", logH.List)
				r.Delete("/logs", logH.Clear)
			}
		})
	})

	return r
}

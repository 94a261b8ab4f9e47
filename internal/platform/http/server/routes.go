package server

import (
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MahdiBaghbani/pizzabot-go/internal/components/api"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/http/auth"
	httpmw "github.com/MahdiBaghbani/pizzabot-go/internal/platform/http/middleware"
)

// RouteGroup defines an endpoint group with its auth requirements.
type RouteGroup struct {
	Name         string
	PathPrefix   string
	RequiresAuth bool
}

// routeGroups is the single source of truth for auth decisions.
var routeGroups = []RouteGroup{
	{Name: "health", PathPrefix: "/health", RequiresAuth: false},
	{Name: "api", PathPrefix: "/api", RequiresAuth: true},
}

// GetRouteGroups returns the route group definitions for testing.
func GetRouteGroups() []RouteGroup {
	return routeGroups
}

// IsAuthRequired reports whether path needs credentials when basic auth is
// configured. Unknown paths require auth.
func IsAuthRequired(path string) bool {
	for _, rg := range routeGroups {
		if pathMatchesPrefix(path, rg.PathPrefix) {
			return rg.RequiresAuth
		}
	}
	return true
}

// pathMatchesPrefix checks if path equals or is a subpath of prefix. A
// dotted suffix such as /api/plans.ics counts as a subpath of /api/plans.
func pathMatchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	next := path[len(prefix)]
	return next == '/' || next == '.'
}

// setupRoutes creates the chi router.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()

	// Order is invariant:
	// RequestID -> real IP -> request-scoped logger -> access log -> recoverer -> auth gate
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(httpmw.RequestLoggerMiddleware(s.logger))
	r.Use(httpmw.AccessLogMiddleware(s.logger))
	r.Use(chimw.Recoverer)

	gate := auth.BasicAuthConfig{
		Username:     s.cfg.BasicAuth.Username,
		PasswordHash: s.cfg.BasicAuth.PasswordHash,
		RequireAuth:  IsAuthRequired,
		Log:          s.logger,
	}
	if gate.Enabled() {
		r.Use(auth.NewBasicAuth(gate))
	} else {
		s.logger.Warn("status API basic auth is not configured; all endpoints are public")
	}

	r.Get("/health", api.HealthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Get("/", api.VersionHandler)
		r.Get("/activity", s.handlers.Activity)
		r.Get("/plans", s.handlers.ActivePlans)
		r.Get("/plans/archived", s.handlers.ArchivedPlans)
		r.Get("/plans.ics", s.handlers.Calendar)
	})
	return r
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints that establish identity (no session required)
		r.Post("/auth/bootstrap", s.handleBootstrap)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/login/oauth", s.handleLoginOAuth)

		// Everything else resolves the caller's session first.
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			// Logout is idempotent and works for anonymous callers too.
			r.Post("/auth/logout", s.handleLogout)

			// Authenticated tier: trigger and observe.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)

				r.Post("/auth/session", s.handleSession)

				r.Get("/devices", s.handleListDevices)
				r.Get("/devices/{id}/actors", s.handleListDeviceActors)

				r.Get("/actions", s.handleListActions)
				r.Post("/actions/{id}/start", s.handleStartAction)
			})

			// Admin tier: management.
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", s.handleListUsers)
					r.Post("/", s.handleCreateUser)
					r.Put("/{id}", s.handleUpdateUser)
					r.Post("/remove", s.handleRemoveUsers)
					r.Delete("/", s.handleRemoveAllUsers)
				})

				r.Post("/actions", s.handleCreateAction)
				r.Put("/actions/{id}", s.handleUpdateAction)
				r.Post("/actions/remove", s.handleRemoveActions)
				r.Delete("/actions", s.handleRemoveAllActions)

				r.Route("/tags", func(r chi.Router) {
					r.Get("/", s.handleListTags)
					r.Post("/", s.handleCreateTag)
					r.Put("/{id}", s.handleUpdateTag)
					r.Post("/remove", s.handleRemoveTags)
					r.Delete("/", s.handleRemoveAllTags)
					r.Post("/{id}/start", s.handleStartTag)
				})

				r.Route("/events", func(r chi.Router) {
					r.Get("/", s.handleListEvents)
					r.Delete("/", s.handleRemoveAllEvents)
				})

				// Live event feed
				r.Get("/ws", s.handleWebSocket)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// Pagination bounds shared by the list endpoints.
const (
	defaultPageLimit = 25
	maxPageLimit     = 200
)

// parsePagination reads limit/offset query parameters, applying the
// default page size and clamping out-of-range values.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

// decodeJSON decodes a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/excelsior/pkg/api/handlers"
	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/api/state"
)

// NewRouter creates the chi router with every route. The application state
// is attached to each request context.
//
// Routes:
//   - GET /ping - Fixed "PONG!" liveness literal
//   - GET /protected-enter - Header-gated route
//   - GET /params/{id}/another_p/{name} - Path parameter echo
//   - GET /question_separator - Query parameter echo
//   - POST /body-data - Message echo
//   - GET /users, POST /users - User list and create
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /external/ping - Outbound call to the external service
//   - GET /metrics - Prometheus exposition (when metricsHandler is non-nil)
func NewRouter(s *state.State, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(state.Middleware(s))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	r.Get("/ping", handlers.Ping)
	r.Get("/protected-enter", handlers.ProtectedEnter)
	r.Get("/params/{id}/another_p/{name}", handlers.Params)
	r.Get("/question_separator", handlers.QuestionSeparator)
	r.Post("/body-data", handlers.BodyData)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", handlers.ListUsers)
		r.Post("/", handlers.CreateUser)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", handlers.Liveness)
		r.Get("/ready", handlers.Readiness)
	})

	r.Get("/external/ping", handlers.ExternalPing)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}

// NewHandler returns the routes wrapped in the full pipeline.
func NewHandler(s *state.State, limits Limits, metricsHandler http.Handler) http.Handler {
	return BuildPipeline(NewRouter(s, metricsHandler), s, limits)
}

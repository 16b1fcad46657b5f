package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/api/response"
)

// Ping handles GET /ping.
func Ping(w http.ResponseWriter, r *http.Request) {
	logger.DebugCtx(r.Context(), "PONG!")
	response.Text(w, http.StatusOK, "PONG!")
}

// ProtectedEnter handles GET /protected-enter. Access requires the configured
// header to carry the configured value exactly.
func ProtectedEnter(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}
	routes := s.Routes()

	got := r.Header.Get(routes.ProtectedHeader)
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(routes.ProtectedValue)) != 1 {
		response.Unauthorized(w, "missing or invalid "+routes.ProtectedHeader)
		return
	}
	response.Text(w, http.StatusOK, "Access Granted")
}

// Package handlers implements the HTTP routes. Handlers read the shared
// application state from the request context.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/api/state"
	"github.com/marmos91/excelsior/pkg/backend"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeJSONBody decodes and validates a JSON request body into v.
// Returns true if successful; otherwise the error response is already written:
// 413 when the body exceeded the pipeline limit, 400 for malformed JSON or
// failed validation.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			response.PayloadTooLarge(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			response.BadRequest(w, "request body is empty")
		default:
			response.BadRequest(w, "invalid request body")
		}
		return false
	}

	if err := validate.Struct(v); err != nil {
		response.BadRequest(w, validationMessage(err))
		return false
	}
	return true
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// stateOrError returns the request's application state, writing a 500 when
// the router did not attach one.
func stateOrError(w http.ResponseWriter, r *http.Request) (*state.State, bool) {
	s := state.FromContext(r.Context())
	if s == nil {
		logger.ErrorCtx(r.Context(), "Application state missing from request context")
		response.InternalServerError(w, "server misconfigured")
		return nil, false
	}
	return s, true
}

// writeBackendError maps backend errors to HTTP statuses.
func writeBackendError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, backend.ErrClosed):
		logger.WarnCtx(r.Context(), "Backend unavailable", logger.KeyOperation, op, logger.Err(err))
		response.ServiceUnavailable(w, "backend unavailable")
	case errors.Is(err, backend.ErrAlreadyExists):
		response.Conflict(w, "already exists")
	case errors.Is(err, backend.ErrNotFound):
		response.NotFound(w, "not found")
	case r.Context().Err() != nil:
		// The timeout stage owns the response once the deadline has passed.
		logger.DebugCtx(r.Context(), "Backend call abandoned", logger.KeyOperation, op, logger.Err(err))
	default:
		logger.ErrorCtx(r.Context(), "Backend operation failed", logger.KeyOperation, op, logger.Err(err))
		response.InternalServerError(w, op+" failed")
	}
}

package handlers

import (
	"net/http"

	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/backend"
)

// BodyData handles POST /body-data: decodes a Message, records it in the
// backend and echoes it back.
func BodyData(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}

	var msg backend.Message
	if !decodeJSONBody(w, r, &msg) {
		return
	}

	if err := s.Backend().SaveMessage(r.Context(), msg); err != nil {
		writeBackendError(w, r, "save_message", err)
		return
	}
	response.OK(w, msg)
}

package handlers

import (
	"net/http"

	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/backend"
)

// ListUsers handles GET /users.
func ListUsers(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}

	users, err := s.Backend().ListUsers(r.Context())
	if err != nil {
		writeBackendError(w, r, "list_users", err)
		return
	}
	response.OK(w, users)
}

// CreateUser handles POST /users. With a stand-in backend the user is echoed
// back with a generated ID but not stored.
func CreateUser(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}

	var req backend.NewUser
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := s.Backend().CreateUser(r.Context(), req)
	if err != nil {
		writeBackendError(w, r, "create_user", err)
		return
	}
	response.Created(w, user)
}

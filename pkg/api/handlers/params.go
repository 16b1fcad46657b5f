package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/excelsior/pkg/api/response"
)

// PathParams is the echo payload of /params/{id}/another_p/{name}.
type PathParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Params handles GET /params/{id}/another_p/{name}.
func Params(w http.ResponseWriter, r *http.Request) {
	response.OK(w, PathParams{
		ID:   chi.URLParam(r, "id"),
		Name: chi.URLParam(r, "name"),
	})
}

// QueryFilters is the echo payload of /question_separator. Absent
// parameters are omitted.
type QueryFilters struct {
	Name   *string `json:"name,omitempty"`
	Age    *uint32 `json:"age,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// QuestionSeparator handles GET /question_separator?name=&age=&active=.
func QuestionSeparator(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f QueryFilters

	if q.Has("name") {
		name := q.Get("name")
		f.Name = &name
	}
	if q.Has("age") {
		age, err := strconv.ParseUint(q.Get("age"), 10, 32)
		if err != nil {
			response.BadRequest(w, "age must be a non-negative integer")
			return
		}
		a := uint32(age)
		f.Age = &a
	}
	if q.Has("active") {
		active, err := strconv.ParseBool(q.Get("active"))
		if err != nil {
			response.BadRequest(w, "active must be a boolean")
			return
		}
		f.Active = &active
	}

	response.OK(w, f)
}

package utils

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PathID returns the named route parameter when it is a UUID. Anything else
// can never match a row, so it answers 404 for resource and reports false.
func PathID(w http.ResponseWriter, r *http.Request, param, resource string) (string, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		NotFound(w, resource)
		return "", false
	}
	return id.String(), true
}

package api

import (
	"context"
	"net/http"
	"strings"
)

// ClassDependencies lists classes and their competitors.
type ClassDependencies interface {
	ListClasses(ctx context.Context) []string
	ListCompetitors(ctx context.Context, class string) []string
}

// ClassHandler handles class and competitor listings.
type ClassHandler struct {
	deps ClassDependencies
}

// NewClassHandler creates a new class handler.
func NewClassHandler(deps ClassDependencies) *ClassHandler {
	return &ClassHandler{deps: deps}
}

// HandleClasses handles GET /classes requests.
func (h *ClassHandler) HandleClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ListClasses(r.Context()))
}

// HandleCompetitors handles GET /competitors?class=C requests.
func (h *ClassHandler) HandleCompetitors(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competitors"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	class := strings.TrimSpace(r.URL.Query().Get("class"))
	if class == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissing("class")))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ListCompetitors(r.Context(), class))
}

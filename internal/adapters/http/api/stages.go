package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// StageDependencies answers scored stage queries.
type StageDependencies interface {
	StagesByCompetitor(ctx context.Context, name string) []StageResult
	StagesByCompetitorNumber(ctx context.Context, number string) []StageResult
	StagesByClass(ctx context.Context, class string, stage int) []StageResult
}

// StageHandler handles stage result requests.
type StageHandler struct {
	deps StageDependencies
}

// NewStageHandler creates a new stage handler.
func NewStageHandler(deps StageDependencies) *StageHandler {
	return &StageHandler{deps: deps}
}

// HandleByCompetitor handles GET /stages/competitor?name=N or ?number=K.
func (h *StageHandler) HandleByCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stages_by_competitor"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	number := strings.TrimSpace(q.Get("number"))

	switch {
	case name != "" && number != "":
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("use either name or number")))
	case name != "":
		writeJSON(w, http.StatusOK, h.deps.StagesByCompetitor(r.Context(), name))
	case number != "":
		if _, err := strconv.Atoi(strings.TrimPrefix(number, "#")); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("invalid number %q", number)))
			return
		}
		writeJSON(w, http.StatusOK, h.deps.StagesByCompetitorNumber(r.Context(), number))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissing("name")))
	}
}

// HandleByClass handles GET /stages/class?class=C&stage=S.
func (h *StageHandler) HandleByClass(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_stages_by_class"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	class := strings.TrimSpace(q.Get("class"))
	if class == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissing("class")))
		return
	}
	stage, err := strconv.Atoi(q.Get("stage"))
	if err != nil || stage < 1 {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("stage must be a positive integer")))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.StagesByClass(r.Context(), class, stage))
}

func errMissing(param string) error {
	return fmt.Errorf("missing %s", param)
}

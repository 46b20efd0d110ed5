package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/stagerank/internal/app"
)

const maxIngestBody = 1 << 16

// IngestDependencies ingests a results address.
type IngestDependencies interface {
	IngestURL(ctx context.Context, address string) (service.IngestReport, error)
}

// IngestHandler handles ingest requests.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

type ingestRequest struct {
	URL string `json:"url"`
}

// HandleIngest handles POST /ingest {"url": "..."}. A skipped fetch answers
// 200 with skipped=true; a committed batch answers 201.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ingest"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing url")))
		return
	}

	report, err := h.deps.IngestURL(r.Context(), req.URL)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, Wrap(op, err))
		return
	}
	if report.Skipped {
		writeJSON(w, http.StatusOK, report)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

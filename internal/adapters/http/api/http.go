// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/stagerank/internal/app"
	"github.com/okian/stagerank/internal/adapters/source/fetch"
	"github.com/okian/stagerank/internal/domain/model"
	"github.com/okian/stagerank/internal/domain/normalize"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	ClassDependencies
	StageDependencies
	IngestDependencies
	StatsProvider
}

// StageResult is the read shape of a scored stage row.
type StageResult = model.StageResult

// Server wires HTTP routes for the results API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	classHandler  *ClassHandler
	stageHandler  *StageHandler
	ingestHandler *IngestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		classHandler:  NewClassHandler(deps),
		stageHandler:  NewStageHandler(deps),
		ingestHandler: NewIngestHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/classes", MetricsMiddleware(s.classHandler.HandleClasses, "classes"))
	mux.HandleFunc("/competitors", MetricsMiddleware(s.classHandler.HandleCompetitors, "competitors"))
	mux.HandleFunc("/stages/competitor", MetricsMiddleware(s.stageHandler.HandleByCompetitor, "stages_competitor"))
	mux.HandleFunc("/stages/class", MetricsMiddleware(s.stageHandler.HandleByClass, "stages_class"))
	mux.HandleFunc("/ingest", MetricsMiddleware(s.ingestHandler.HandleIngest, "ingest"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before writing the header, so a value that cannot be
// encoded answers 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an upstream error to a status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, normalize.ErrMalformedInput):
		return http.StatusBadRequest, "malformed_input"
	case errors.Is(err, service.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid_address"
	case errors.Is(err, service.ErrMissingMatchID):
		return http.StatusBadRequest, "missing_match_id"
	case errors.Is(err, service.ErrAddressNotAllowed):
		return http.StatusForbidden, "address_not_allowed"
	case errors.Is(err, fetch.ErrUnexpectedStatus), errors.Is(err, fetch.ErrFetch):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

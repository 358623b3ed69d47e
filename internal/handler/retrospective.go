package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"vitalwatch/internal/retrospective"
)

// RetrospectiveRunner is the batch replay collaborator.
type RetrospectiveRunner interface {
	Run(ctx context.Context, opts retrospective.Options) (*retrospective.Summary, error)
}

// RetrospectiveHandler exposes the batch replay over HTTP.
type RetrospectiveHandler struct {
	runner RetrospectiveRunner
	logger *zap.Logger
}

// NewRetrospectiveHandler creates the handler.
func NewRetrospectiveHandler(runner RetrospectiveRunner, logger *zap.Logger) *RetrospectiveHandler {
	return &RetrospectiveHandler{
		runner: runner,
		logger: logger,
	}
}

// Router builds the service routes.
func (h *RetrospectiveHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/retrospective", h.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	return r
}

type runRequest struct {
	PatientID      string `json:"patientId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	UpdateDatabase *bool  `json:"updateDatabase"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleRun validates the request and executes one retrospective run.
// Malformed dates and start-after-end are rejected before any processing.
func (h *RetrospectiveHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	opts := retrospective.Options{
		PatientID:      req.PatientID,
		UpdateDatabase: true,
	}
	if req.UpdateDatabase != nil {
		opts.UpdateDatabase = *req.UpdateDatabase
	}

	if req.StartDate != "" {
		start, err := parseDate(req.StartDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid startDate: %v", err))
			return
		}
		opts.Start = &start
	}
	if req.EndDate != "" {
		end, err := parseDate(req.EndDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid endDate: %v", err))
			return
		}
		opts.End = &end
	}
	if opts.Start != nil && opts.End != nil && opts.Start.After(*opts.End) {
		h.writeError(w, http.StatusBadRequest, "startDate is after endDate")
		return
	}

	summary, err := h.runner.Run(r.Context(), opts)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

func (h *RetrospectiveHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an ISO-8601 date: %q", s)
	}
	return t, nil
}

func (h *RetrospectiveHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *RetrospectiveHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

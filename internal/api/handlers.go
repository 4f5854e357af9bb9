// Package api exposes the scrape service over HTTP: readiness, a browser
// status probe and run management.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ryparmar/serverless-aws-lambda-scraper/internal/database"
)

// RunService starts and inspects scrape runs. The server binary wires it to
// the run controller, the run-history table and the event publisher.
type RunService interface {
	StartRun(ctx context.Context) (*database.Run, error)
	GetRun(ctx context.Context, id string) (*database.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*database.Run, error)
	Status(ctx context.Context) (string, error)
}

type Handlers struct {
	service RunService
	logger  *slog.Logger
}

func NewHandlers(service RunService, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger.With("component", "api")}
}

// Routes registers the handler endpoints on a fresh router. Middleware is
// the caller's concern.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Get("/status", h.Status)
	r.Post("/scrape", h.StartScrape)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)
	return r
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Scrapers are ready."})
}

// Status probes the browser session and reports what it sees.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("status probe failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "browser session unavailable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// StartScrape launches a run in the background and returns its record.
func (h *Handlers) StartScrape(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.StartRun(r.Context())
	if err != nil {
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondJSON(w, http.StatusAccepted, run)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")

	run, err := h.service.GetRun(r.Context(), id)
	if errors.Is(err, database.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.service.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*database.Run{}
	}
	h.respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}

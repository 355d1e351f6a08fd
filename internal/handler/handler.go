package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mtlprog/kindroute/internal/handler/dto"
	"github.com/mtlprog/kindroute/internal/service"
	"github.com/mtlprog/kindroute/internal/static"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds dependencies for HTTP handlers.
type Config struct {
	Assignments   *service.AssignmentService
	Scoring       *service.ScoringService
	Notifications *service.NotificationService
	// HealthChecks are run by /healthz, keyed by dependency name.
	HealthChecks map[string]HealthCheck
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	assignments   *service.AssignmentService
	scoring       *service.ScoringService
	notifications *service.NotificationService
	healthChecks  map[string]HealthCheck
	metrics       http.Handler
}

// New creates a new Handler instance with all dependencies.
func New(cfg Config) *Handler {
	return &Handler{
		assignments:   cfg.Assignments,
		scoring:       cfg.Scoring,
		notifications: cfg.Notifications,
		healthChecks:  cfg.HealthChecks,
		metrics:       cfg.Metrics,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Operations
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api.md", h.handleAPIMd)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	// Tasks
	mux.HandleFunc("POST /api/v1/tasks", h.handleCreateTask)
	mux.HandleFunc("GET /api/v1/tasks/{id}", h.handleGetTask)
	mux.HandleFunc("GET /api/v1/tasks/{id}/assignments", h.handleListTaskAssignments)

	// Assignments
	mux.HandleFunc("GET /api/v1/assignments", h.handleListAssignments)
	mux.HandleFunc("POST /api/v1/assignments/{id}/respond", h.handleRespond)
	mux.HandleFunc("POST /api/v1/assignments/{id}/schedule", h.handleSchedule)
	mux.HandleFunc("POST /api/v1/assignments/{id}/complete", h.handleComplete)
	mux.HandleFunc("POST /api/v1/assignments/{id}/confirm-receipt", h.handleConfirmReceipt)
	mux.HandleFunc("POST /api/v1/assignments/{id}/feedback", h.handleFeedback)

	// Scoring
	mux.HandleFunc("GET /api/v1/ledgers/{kind}/{id}", h.handleGetLedger)
	mux.HandleFunc("GET /api/v1/ledgers/{kind}/{id}/rank", h.handleGetRank)
	mux.HandleFunc("GET /api/v1/leaderboard", h.handleLeaderboard)

	// Notifications
	if h.notifications != nil {
		mux.HandleFunc("GET /api/v1/notifications/{kind}/{id}", h.handleListNotifications)
	}
}

// handleHealthz returns 200 OK if every dependency is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for name, check := range h.healthChecks {
		if err := check(ctx); err != nil {
			slog.Error("health check failed", "dependency", name, "error", err)
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleAPIMd serves the embedded API reference.
func (h *Handler) handleAPIMd(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(static.APIMd)); err != nil {
		slog.Error("failed to write api.md", "error", err)
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps a service error to its HTTP representation.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// decodeJSON decodes the request body into v.
// Returns false if the body is malformed (error already sent to client).
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// limitFromQuery reads an optional positive ?limit=. Returns (0, true) when
// absent and (0, false) if invalid (error already sent to client).
func limitFromQuery(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitParam := r.URL.Query().Get("limit")
	if limitParam == "" {
		return 0, true
	}

	n, err := strconv.Atoi(limitParam)
	if err != nil || n <= 0 {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

// extractID extracts and validates a UUID path parameter.
// Returns (id, true) if valid, ("", false) if invalid (error already sent to client).
func extractID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" id is required")
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+"_id must be a valid UUID")
		return "", false
	}

	return id, true
}

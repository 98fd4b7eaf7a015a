package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/user/snapbot/internal/delivery/http/response"
	"github.com/user/snapbot/internal/usecase"
)

type Handler struct {
	tracker *usecase.Tracker
	dryRun  bool
	logger  *zap.Logger
}

func NewHandler(tracker *usecase.Tracker, dryRun bool, logger *zap.Logger) *Handler {
	return &Handler{
		tracker: tracker,
		dryRun:  dryRun,
		logger:  logger,
	}
}

func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		h.writeJSONError(w, "Invalid URL format in query parameter", http.StatusBadRequest)
		return
	}

	status := h.tracker.Status(rawURL)
	if status == usecase.StatusNotFound {
		h.writeJSONError(w, "URL has not been seen by the poll loop", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.StatusResponse{URL: rawURL, Status: status})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.tracker.Stats()
	resp := response.HealthResponse{
		Status:      "ok",
		Cycles:      stats.Cycles,
		Processed:   stats.Processed,
		Quarantined: stats.Quarantined,
		DryRun:      h.dryRun,
	}
	if !stats.LastCycle.IsZero() {
		last := stats.LastCycle
		resp.LastCycle = &last
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// WorkingHoursStore persists per-provider working hours configuration.
type WorkingHoursStore interface {
	LoadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error)
	SaveWorkingHours(ctx context.Context, providerID uuid.UUID, cfg schedule.WorkingHoursConfig) error
}

// WorkingHoursHandler serves the provider schedule configuration endpoints.
type WorkingHoursHandler struct {
	store  WorkingHoursStore
	logger *logging.Logger
}

// NewWorkingHoursHandler creates a working hours handler.
func NewWorkingHoursHandler(store WorkingHoursStore, logger *logging.Logger) *WorkingHoursHandler {
	if store == nil {
		panic("handlers: working hours store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WorkingHoursHandler{store: store, logger: logger}
}

// Get handles GET /providers/{providerID}/working-hours.
func (h *WorkingHoursHandler) Get(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return
	}

	cfg, err := h.store.LoadWorkingHours(r.Context(), providerID)
	if errors.Is(err, appointments.ErrNotFound) {
		http.Error(w, "no working hours configured", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load working hours", "error", err, "provider_id", providerID)
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// PutWorkingHoursResponse reports the saved config plus any anomalies found
// in it. A day with start >= end is saved but treated as closed.
type PutWorkingHoursResponse struct {
	Saved    bool     `json:"saved"`
	Warnings []string `json:"warnings,omitempty"`
}

// Put handles PUT /providers/{providerID}/working-hours.
func (h *WorkingHoursHandler) Put(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return
	}

	var cfg schedule.WorkingHoursConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := cfg.Location(); err != nil {
		http.Error(w, "unknown timezone", http.StatusBadRequest)
		return
	}

	warnings := cfg.Validate()
	if err := h.store.SaveWorkingHours(r.Context(), providerID, cfg); err != nil {
		h.logger.Error("failed to save working hours", "error", err, "provider_id", providerID)
		http.Error(w, "failed to save working hours", http.StatusInternalServerError)
		return
	}

	h.logger.Info("working hours updated", "provider_id", providerID, "warnings", len(warnings))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PutWorkingHoursResponse{Saved: true, Warnings: warnings})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/booking"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// BookingHandler serves booking attempts and lifecycle transitions.
type BookingHandler struct {
	arbitrator *booking.Arbitrator
	lifecycle  *appointments.Lifecycle
	logger     *logging.Logger
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(arbitrator *booking.Arbitrator, lifecycle *appointments.Lifecycle, logger *logging.Logger) *BookingHandler {
	if arbitrator == nil {
		panic("handlers: arbitrator required")
	}
	if lifecycle == nil {
		panic("handlers: lifecycle required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{arbitrator: arbitrator, lifecycle: lifecycle, logger: logger}
}

// CreateBookingRequest is the POST /providers/{providerID}/bookings body.
type CreateBookingRequest struct {
	ClientID        uuid.UUID `json:"client_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Buffer          *struct {
		PreTravelMinutes  int `json:"pre_travel_minutes"`
		PostTravelMinutes int `json:"post_travel_minutes"`
	} `json:"buffer,omitempty"`
}

// Create handles POST /providers/{providerID}/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	attempt := booking.BookingRequest{
		ProviderID:      providerID,
		ClientID:        req.ClientID,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
	}
	if req.Buffer != nil {
		attempt.Buffer = &appointments.TravelBufferPolicy{
			PreTravelMinutes:  req.Buffer.PreTravelMinutes,
			PostTravelMinutes: req.Buffer.PostTravelMinutes,
		}
	}

	result, err := h.arbitrator.AttemptBook(r.Context(), attempt)
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, booking.ErrLockTimeout):
		// The provider lock was busy; the client should simply retry.
		w.Header().Set("Retry-After", "1")
		http.Error(w, "provider is busy, please retry", http.StatusServiceUnavailable)
		return
	case err != nil:
		h.logger.Error("booking attempt failed", "error", err, "provider_id", providerID)
		http.Error(w, "booking failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !result.Success {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(result)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// Confirm handles POST /appointments/{appointmentID}/confirm.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	result, err := h.lifecycle.Confirm(r.Context(), id)
	if errors.Is(err, appointments.ErrNotFound) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("confirm failed", "error", err, "appointment_id", id)
		http.Error(w, "confirm failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Cancel handles POST /appointments/{appointmentID}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	result, err := h.lifecycle.Cancel(r.Context(), id)
	if errors.Is(err, appointments.ErrNotFound) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("cancel failed", "error", err, "appointment_id", id)
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

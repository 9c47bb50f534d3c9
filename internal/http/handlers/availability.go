package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/availability"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// AvailabilityHandler serves slot availability queries.
type AvailabilityHandler struct {
	resolver    *availability.Resolver
	granularity time.Duration
	logger      *logging.Logger
}

// NewAvailabilityHandler creates an availability handler. granularity is the
// grid step used to discretize free intervals into start times.
func NewAvailabilityHandler(resolver *availability.Resolver, granularity time.Duration, logger *logging.Logger) *AvailabilityHandler {
	if resolver == nil {
		panic("handlers: resolver required")
	}
	if granularity <= 0 {
		granularity = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{resolver: resolver, granularity: granularity, logger: logger}
}

type intervalJSON struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayAvailabilityResponse lists a provider's bookable spans for one day.
type DayAvailabilityResponse struct {
	Date          string         `json:"date"`
	FreeIntervals []intervalJSON `json:"free_intervals"`
	SlotStarts    []time.Time    `json:"slot_starts"`
}

// GetDay handles GET /providers/{providerID}/availability?date=YYYY-MM-DD&duration=30
func (h *AvailabilityHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	durationMinutes := 30
	if v := r.URL.Query().Get("duration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			durationMinutes = n
		} else {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}
	}
	duration := time.Duration(durationMinutes) * time.Minute

	free, err := h.resolver.FreeIntervals(r.Context(), providerID, date, duration)
	if err != nil {
		h.logger.Error("failed to compute free intervals", "error", err, "provider_id", providerID)
		http.Error(w, "failed to compute availability", http.StatusInternalServerError)
		return
	}

	resp := DayAvailabilityResponse{
		Date:          date.Format("2006-01-02"),
		FreeIntervals: make([]intervalJSON, 0, len(free)),
		SlotStarts:    availability.DiscretizeStarts(free, duration, h.granularity),
	}
	for _, iv := range free {
		resp.FreeIntervals = append(resp.FreeIntervals, intervalJSON{Start: iv.Start, End: iv.End})
	}
	if resp.SlotStarts == nil {
		resp.SlotStarts = []time.Time{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CheckSlot handles GET /providers/{providerID}/availability/check?start=RFC3339&duration=30
func (h *AvailabilityHandler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		http.Error(w, "invalid provider id", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "invalid start, expected RFC3339", http.StatusBadRequest)
		return
	}
	durationMinutes, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || durationMinutes <= 0 {
		http.Error(w, "invalid duration", http.StatusBadRequest)
		return
	}

	result, err := h.resolver.Check(r.Context(), providerID, schedule.Interval{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	})
	if errors.Is(err, availability.ErrInvalidInterval) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("availability check failed", "error", err, "provider_id", providerID)
		http.Error(w, "failed to check availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

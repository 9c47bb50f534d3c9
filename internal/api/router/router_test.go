package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/availability"
	"github.com/ryankall/clipprmobile-sub007/internal/booking"
	"github.com/ryankall/clipprmobile-sub007/internal/http/handlers"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
	"github.com/ryankall/clipprmobile-sub007/internal/storage"
)

func newTestRouter(t *testing.T) (http.Handler, uuid.UUID) {
	t.Helper()
	store := storage.NewMemoryStore()
	providerID := uuid.New()
	require.NoError(t, store.SaveWorkingHours(context.Background(), providerID, schedule.WorkingHoursConfig{
		Days: map[time.Weekday]schedule.DayHours{
			time.Tuesday: {Enabled: true, Start: schedule.MustTimeOfDay("09:00"), End: schedule.MustTimeOfDay("18:00")},
		},
	}))

	lifecycle := appointments.NewLifecycle(store, nil, nil, nil)
	resolver := availability.NewResolver(store, lifecycle, appointments.TravelBufferPolicy{}, nil, nil)
	arbitrator := booking.NewArbitrator(booking.NewMutexLocker(), resolver, store, 30*time.Minute, time.Second, nil, nil)

	handler := New(&Config{
		AvailabilityHandler: handlers.NewAvailabilityHandler(resolver, 15*time.Minute, nil),
		BookingHandler:      handlers.NewBookingHandler(arbitrator, lifecycle, nil),
		WorkingHoursHandler: handlers.NewWorkingHoursHandler(store, nil),
		CORSAllowedOrigins:  []string{"*"},
	})
	return handler, providerID
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAvailabilityRouteIsWired(t *testing.T) {
	handler, providerID := newTestRouter(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers/"+providerID.String()+"/availability?date=2026-03-10&duration=30", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "free_intervals")
}

func TestCORSPreflight(t *testing.T) {
	handler, providerID := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/providers/"+providerID.String()+"/bookings", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIs404(t *testing.T) {
	handler, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

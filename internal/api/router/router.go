package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ryankall/clipprmobile-sub007/internal/http/handlers"
	httpmiddleware "github.com/ryankall/clipprmobile-sub007/internal/http/middleware"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *handlers.AvailabilityHandler
	BookingHandler      *handlers.BookingHandler
	WorkingHoursHandler *handlers.WorkingHoursHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/providers/{providerID}", func(r chi.Router) {
		if cfg.AvailabilityHandler != nil {
			r.Get("/availability", cfg.AvailabilityHandler.GetDay)
			r.Get("/availability/check", cfg.AvailabilityHandler.CheckSlot)
		}
		if cfg.BookingHandler != nil {
			r.Post("/bookings", cfg.BookingHandler.Create)
		}
		if cfg.WorkingHoursHandler != nil {
			r.Get("/working-hours", cfg.WorkingHoursHandler.Get)
			r.Put("/working-hours", cfg.WorkingHoursHandler.Put)
		}
	})

	if cfg.BookingHandler != nil {
		r.Route("/appointments/{appointmentID}", func(r chi.Router) {
			r.Post("/confirm", cfg.BookingHandler.Confirm)
			r.Post("/cancel", cfg.BookingHandler.Cancel)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ryankall/clipprmobile-sub007/internal/api/router"
	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/availability"
	"github.com/ryankall/clipprmobile-sub007/internal/booking"
	appconfig "github.com/ryankall/clipprmobile-sub007/internal/config"
	"github.com/ryankall/clipprmobile-sub007/internal/events"
	"github.com/ryankall/clipprmobile-sub007/internal/http/handlers"
	"github.com/ryankall/clipprmobile-sub007/internal/notify"
	"github.com/ryankall/clipprmobile-sub007/internal/observability/metrics"
	"github.com/ryankall/clipprmobile-sub007/internal/storage"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// busDelivery replays durable outbox rows onto the in-process bus.
type busDelivery struct {
	bus *events.Bus
}

func (d busDelivery) Handle(ctx context.Context, entry events.OutboxEntry) error {
	if entry.Type != events.TypeAppointmentStatusChanged {
		return nil
	}
	var evt events.AppointmentStatusChangedV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return fmt.Errorf("decode outbox payload: %w", err)
	}
	d.bus.Publish(ctx, evt)
	return nil
}

func main() {
	// Load .env in development; absent files are fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clippr booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	// Storage: Postgres in production, in-memory for local development.
	var (
		store  storage.Store
		pool   *pgxpool.Pool
		locker booking.Locker
	)
	if cfg.UseMemoryStore || cfg.DatabaseURL == "" {
		logger.Warn("using in-memory store; state will not survive restarts")
		store = storage.NewMemoryStore()
		locker = booking.NewMutexLocker()
	} else {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		store = storage.NewPostgresStore(pool)
		locker = storage.NewAdvisoryLocker(pool)
	}

	// Redis lock supersedes the storage-derived locker when configured.
	if cfg.UseRedisLock && cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		locker = booking.NewRedisLocker(client, cfg.LockTTL, logger)
		logger.Info("using redis booking lock", "addr", cfg.RedisAddr)
	}

	// Event plumbing: the in-process bus feeds notifications; with Postgres
	// the outbox makes publication durable and the deliverer replays rows
	// onto the bus.
	bus := events.NewBus(logger)
	notifier := notify.NewService(notify.NewLogSender(logger), notify.EchoDirectory{}, logger)
	bus.Subscribe(notifier)

	var publisher events.Publisher = bus
	if pool != nil {
		outbox := events.NewOutboxStore(pool, logger)
		publisher = outbox
		deliverer := events.NewDeliverer(outbox, busDelivery{bus: bus}, logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxDeliverInterval)
		go deliverer.Run(ctx)
	}

	defaultBuffer := appointments.TravelBufferPolicy{
		PreTravelMinutes:  cfg.DefaultPreTravelMinutes,
		PostTravelMinutes: cfg.DefaultPostTravelMinutes,
	}

	lifecycle := appointments.NewLifecycle(store, publisher, bookingMetrics, logger)
	resolver := availability.NewResolver(store, lifecycle, defaultBuffer, bookingMetrics, logger)
	arbitrator := booking.NewArbitrator(locker, resolver, store, cfg.HoldExpiry, cfg.LockWaitTimeout, bookingMetrics, logger)

	sweeper := appointments.NewSweeper(lifecycle, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	r := router.New(&router.Config{
		Logger:              logger,
		AvailabilityHandler: handlers.NewAvailabilityHandler(resolver, cfg.SlotGranularity, logger),
		BookingHandler:      handlers.NewBookingHandler(arbitrator, lifecycle, logger),
		WorkingHoursHandler: handlers.NewWorkingHoursHandler(store, logger),
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  strings.Split(cfg.CORSAllowedOrigins, ","),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Flush in-flight event deliveries before exiting.
	bus.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

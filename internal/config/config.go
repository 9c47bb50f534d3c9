package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL    string
	UseMemoryStore bool

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	UseRedisLock  bool

	// HoldExpiry is how long a pending hold stays reserved before it lapses.
	HoldExpiry time.Duration
	// LockWaitTimeout bounds how long a booking attempt waits for the
	// provider lock before giving up.
	LockWaitTimeout time.Duration
	// LockTTL caps how long a crashed holder can keep a distributed lock.
	LockTTL time.Duration
	// SweepInterval is the background expiry sweep cadence.
	SweepInterval time.Duration

	DefaultPreTravelMinutes  int
	DefaultPostTravelMinutes int
	// SlotGranularity is the grid step for discretized start times.
	SlotGranularity time.Duration

	OutboxDeliverInterval time.Duration
	OutboxBatchSize       int

	CORSAllowedOrigins string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		UseRedisLock:  getEnvAsBool("USE_REDIS_LOCK", false),

		HoldExpiry:      getEnvAsDuration("HOLD_EXPIRY", 30*time.Minute),
		LockWaitTimeout: getEnvAsDuration("LOCK_WAIT_TIMEOUT", 5*time.Second),
		LockTTL:         getEnvAsDuration("LOCK_TTL", 10*time.Second),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", time.Minute),

		DefaultPreTravelMinutes:  getEnvAsInt("DEFAULT_PRE_TRAVEL_MINUTES", 0),
		DefaultPostTravelMinutes: getEnvAsInt("DEFAULT_POST_TRAVEL_MINUTES", 0),
		SlotGranularity:          getEnvAsDuration("SLOT_GRANULARITY", 15*time.Minute),

		OutboxDeliverInterval: getEnvAsDuration("OUTBOX_DELIVER_INTERVAL", 5*time.Second),
		OutboxBatchSize:       getEnvAsInt("OUTBOX_BATCH_SIZE", 50),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

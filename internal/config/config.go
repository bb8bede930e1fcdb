package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string // "json" or "console"

	// Sessions idle longer than SessionTTL lose their cart.
	SessionTTL          time.Duration
	SessionReapInterval time.Duration

	JWTSecret string

	// Sizes the storefront offers; add requests outside this set are rejected.
	Sizes []string

	// Empty disables event publishing.
	RabbitMQURL string
}

var defaultSizes = []string{"6", "7", "8", "9", "10", "11", "12"}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            stringEnv("PORT", "8081"),
		ShutdownTimeout: intervalEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:  stringEnv("LOG_LEVEL", "info"),
		LogFormat: stringEnv("LOG_FORMAT", "json"),

		SessionTTL:          durationEnv("SESSION_TTL", 2*time.Hour),
		SessionReapInterval: intervalEnv("SESSION_REAP_INTERVAL", time.Minute),

		JWTSecret: stringEnv("JWT_SECRET", ""),

		Sizes: listEnv("CART_SIZES", defaultSizes),

		RabbitMQURL: stringEnv("RABBITMQ_URL", ""),
	}
}

// stringEnv returns the trimmed value of k, or def when it is blank.
func stringEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// listEnv splits k on commas, dropping blanks. An empty result yields a copy
// of def.
func listEnv(k string, def []string) []string {
	parts := strings.Split(os.Getenv(k), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

// durationEnv parses k as a duration. Unset, malformed and negative values
// fall back to def; zero is kept.
func durationEnv(k string, def time.Duration) time.Duration {
	v := stringEnv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// intervalEnv is durationEnv for values that drive timers and must be positive.
func intervalEnv(k string, def time.Duration) time.Duration {
	if d := durationEnv(k, def); d > 0 {
		return d
	}
	return def
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// App holds runtime configuration derived from environment variables.
type App struct {
	Environment string
	LogLevel    string
	APIPort     string
	CORSOrigins []string

	DatabaseURL  string
	KafkaBrokers []string
	KafkaTopic   string

	// Dispatcher settings.
	DispatchTick  time.Duration
	DispatchBatch int
	MaxAttempts   int
	ActionTimeout time.Duration
}

// FromEnv loads the application configuration from environment variables,
// applying defaults for everything except DATABASE_URL and KAFKA_BROKERS.
func FromEnv() App {
	return App{
		Environment:   getEnv("ENVIRONMENT", "production"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		APIPort:       getEnv("API_PORT", "8080"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "st2.events"),
		DispatchTick:  getDuration("DISPATCH_TICK", 5*time.Second),
		DispatchBatch: getInt("DISPATCH_BATCH", 50),
		MaxAttempts:   getInt("MAX_ATTEMPTS", 3),
		ActionTimeout: getDuration("ACTION_TIMEOUT", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config builds runtime configuration from the environment so main
// stays lean and core logic never hardwires tunables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	Screening Screening

	// Optional infrastructure. Empty values disable the dependency.
	PostgresDSN string
	RedisURL    string
	AuditTopic  string
	AuditBroker []string
}

// Screening holds the tunables of the matching pipeline. Every value has an
// environment override; defaults live here, not in the core packages.
type Screening struct {
	BackendURL     string
	BackendAPIKey  string
	FuzzyThreshold int           // minimum confidence before NO_MATCH
	DefaultLimit   int           // backend result limit per call
	CallTimeout    time.Duration // per remote call
	RetryCount     int           // retries per remote call before fallback
	RetryBackoff   time.Duration
	WorkerWidth    int // batch pool size; sized for backend rate limits
	BackendRPS     int // client-side rate limit toward the backend
	CacheTTL       time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:        envString("VIGIL_ADDR", ":8080"),
		LogLevel:    envString("VIGIL_LOG_LEVEL", "info"),
		PostgresDSN: os.Getenv("VIGIL_POSTGRES_DSN"),
		RedisURL:    os.Getenv("VIGIL_REDIS_URL"),
		AuditTopic:  envString("VIGIL_AUDIT_TOPIC", "screening.audit"),
		AuditBroker: splitNonEmpty(os.Getenv("VIGIL_AUDIT_BROKERS")),
		Screening: Screening{
			BackendURL:     envString("VIGIL_BACKEND_URL", "http://localhost:9000"),
			BackendAPIKey:  os.Getenv("VIGIL_BACKEND_API_KEY"),
			FuzzyThreshold: envInt("VIGIL_FUZZY_THRESHOLD", 40),
			DefaultLimit:   envInt("VIGIL_DEFAULT_LIMIT", 25),
			CallTimeout:    envDuration("VIGIL_CALL_TIMEOUT", 5*time.Second),
			RetryCount:     envInt("VIGIL_RETRY_COUNT", 1),
			RetryBackoff:   envDuration("VIGIL_RETRY_BACKOFF", 250*time.Millisecond),
			WorkerWidth:    envInt("VIGIL_WORKER_WIDTH", 5),
			BackendRPS:     envInt("VIGIL_BACKEND_RPS", 10),
			CacheTTL:       envDuration("VIGIL_CACHE_TTL", 5*time.Minute),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if part := v[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

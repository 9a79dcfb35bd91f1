package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Route is the per-route limit for one method and path.
type Route struct {
	Method string
	Path   string
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	IdleTTL       time.Duration
	Allowlist     map[string]bool
	Denylist      map[string]bool
	Routes        []Route
}

// LoadConfig reads CHURNFORGE_RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !getEnvBool("CHURNFORGE_RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	predictLimit := getEnvInt("CHURNFORGE_RATE_LIMIT_PREDICT", 600)
	predictWindow := getEnvDuration("CHURNFORGE_RATE_LIMIT_PREDICT_WINDOW", time.Minute)

	return &Config{
		Enabled:       true,
		DefaultLimit:  getEnvInt("CHURNFORGE_RATE_LIMIT_DEFAULT", 1000),
		DefaultWindow: getEnvDuration("CHURNFORGE_RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		IdleTTL:       getEnvDuration("CHURNFORGE_RATE_LIMIT_IDLE_TTL", time.Hour),
		Allowlist:     parseIPList(os.Getenv("CHURNFORGE_RATE_LIMIT_ALLOWLIST")),
		Denylist:      parseIPList(os.Getenv("CHURNFORGE_RATE_LIMIT_DENYLIST")),
		Routes:        DefaultRoutes(predictLimit, predictWindow),
	}
}

// DefaultRoutes limits scoring and reloading; health checks are never limited.
func DefaultRoutes(predictLimit int, predictWindow time.Duration) []Route {
	return []Route{
		{Method: "GET", Path: "/health", Limit: 0},
		{Method: "POST", Path: "/predict", Limit: predictLimit, Window: predictWindow, Burst: max(1, predictLimit/10)},
		{Method: "POST", Path: "/reload", Limit: 6, Window: time.Minute, Burst: 2},
	}
}

// match returns the route for method and path, or nil.
func match(routes []Route, method, path string) *Route {
	path = strings.TrimSuffix(path, "/")
	for i := range routes {
		if routes[i].Method == method && routes[i].Path == path {
			return &routes[i]
		}
	}
	return nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}

package ratelimit

import (
	"time"
)

// EndpointConfig overrides the default limit for one endpoint.
type EndpointConfig struct {
	Path      string  // Endpoint path (a trailing "/" matches by prefix)
	Method    string  // HTTP method (GET, POST, etc.)
	PerSecond float64 // Sustained requests per second; zero or less is unlimited
	Burst     int     // Burst capacity (defaults to 1 if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled   bool
	PerSecond float64
	Burst     int

	// CleanupInterval controls how often idle clients are forgotten.
	CleanupInterval time.Duration
	// IdleTTL is how long a client may stay idle before it is forgotten.
	IdleTTL time.Duration

	Endpoints []EndpointConfig
}

// NewConfig returns the default configuration for a sustained rate and burst.
// A non-positive perSecond disables limiting.
func NewConfig(perSecond float64, burst int) *Config {
	return &Config{
		Enabled:         perSecond > 0,
		PerSecond:       perSecond,
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Endpoints:       DefaultEndpointConfigs(perSecond),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits. Triggering a run
// is the expensive operation and gets a tenth of the default rate.
func DefaultEndpointConfigs(perSecond float64) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/messages", Method: "POST", PerSecond: perSecond / 10, Burst: 2},
		{Path: "/sessions", Method: "DELETE", PerSecond: perSecond / 10, Burst: 2},
	}
}

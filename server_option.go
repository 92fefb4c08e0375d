package referral

import (
	"github.com/prometheus/client_golang/prometheus"
)

type ServerOption func(config *serverOptionalConfig)

type serverOptionalConfig struct {
	allowedOrigins []string
	registry       *prometheus.Registry
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(cfg *serverOptionalConfig) {
		cfg.allowedOrigins = origins
	}
}

// WithMetricsRegistry registers the server collectors on reg instead of a
// private registry.
func WithMetricsRegistry(reg *prometheus.Registry) ServerOption {
	return func(cfg *serverOptionalConfig) {
		cfg.registry = reg
	}
}

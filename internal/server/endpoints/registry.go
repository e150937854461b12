package endpoints

import (
	"github.com/jackzampolin/sides/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// MaxBodyBytes caps POST /pdf/extract request bodies.
	MaxBodyBytes int64
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Extraction
		&ExtractEndpoint{MaxBodyBytes: cfg.MaxBodyBytes},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

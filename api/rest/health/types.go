package health

import "context"

const serviceName = "scribe"

// Response represents the health check response
type Response struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type PingResponse struct {
	Message string `json:"message"`
}

// probes one backing service, e.g. postgres or redis
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

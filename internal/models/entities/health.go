package entities

import "time"

const (
	HealthOK   = "ok"
	HealthDown = "down"
)

// DependencyStatus is the outcome of pinging one dependency of the gateway
type DependencyStatus struct {
	Status    string `json:"status"`
	Details   string `json:"details"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthCheckResponse is the body of GET /healthCheck. Status is down when
// any dependency is down.
type HealthCheckResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
	UpSince      time.Time                   `json:"up_since"`
	Uptime       string                      `json:"uptime"`
}

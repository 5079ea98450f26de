package api

import (
	"context"
	"encoding/json"
	"infinite-experiment/edigate/internal/models/entities"
	"net/http"
	"time"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Verifies the server and its dependencies are reachable.
// @Tags Misc
// @Success 200 {object} entities.HealthCheckResponse
// @Failure 503 {object} entities.HealthCheckResponse
// @Router /healthCheck [get]
func HealthCheckHandler(upSince time.Time, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		deps := make(map[string]entities.DependencyStatus, len(checks))
		overallStatus := entities.HealthOK
		for name, check := range checks {
			started := time.Now()
			status := entities.DependencyStatus{Status: entities.HealthOK, Details: "connected"}
			if err := check.PingContext(ctx); err != nil {
				status = entities.DependencyStatus{Status: entities.HealthDown, Details: err.Error()}
				overallStatus = entities.HealthDown
			}
			status.LatencyMs = time.Since(started).Milliseconds()
			deps[name] = status
		}

		resp := entities.HealthCheckResponse{
			Dependencies: deps,
			Status:       overallStatus,
			UpSince:      upSince.UTC(),
			Uptime:       time.Since(upSince).Round(time.Second).String(),
		}

		code := http.StatusOK
		if overallStatus != entities.HealthOK {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

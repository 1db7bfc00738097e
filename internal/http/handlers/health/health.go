// Package health contains the liveness and readiness handlers.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/aanand-mishra/alumni-match-api/internal/utils/response"
)

// Check probes one dependency. A nil error means it is usable.
type Check func(ctx context.Context) error

// Live handles GET /health. It only reports that the process is serving.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]any{
			"status":       response.StatusOK,
			"model_loaded": true,
		})
	}
}

// Report is the body of GET /ready.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Ready handles GET /ready
// Runs every check concurrently, each bounded by timeout.
//
// Success response (200 OK):
//
//	{ "status": "ok", "checks": { "storage": "ok", "embedder": "ok" } }
//
// Any failing check turns the response into 503 with the failure message
// in place of "ok".
// ─────────────────────────────────────────────────────────────────────────────
func Ready(checks map[string]Check, timeout time.Duration) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		results := make([]error, len(names))
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = checks[name](ctx)
			}()
		}
		wg.Wait()

		report := Report{Status: response.StatusOK, Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for i, name := range names {
			if err := results[i]; err != nil {
				slog.Warn("readiness check failed",
					slog.String("check", name),
					slog.String("error", err.Error()))
				report.Checks[name] = err.Error()
				report.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = response.StatusOK
		}

		response.WriteJSON(w, status, report)
	}
}

package httpx

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker is satisfied by any infrastructure dependency that exposes
// a Ping method (database.Database, cache.RedisClient, events.EventBus all qualify).
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks holds the set of dependencies checked by the health endpoint.
// A nil checker is reported as "disabled" and does not degrade the status.
type HealthChecks struct {
	Database HealthChecker
	Redis    HealthChecker
	EventBus HealthChecker
}

func (c HealthChecks) named() map[string]HealthChecker {
	return map[string]HealthChecker{
		"database":  c.Database,
		"redis":     c.Redis,
		"event_bus": c.EventBus,
	}
}

// HealthHandler returns an http.HandlerFunc that checks all registered
// HealthCheckers and reports degraded status if any of them fail.
// The body is a flat object: {"status": "ok", "database": "ok", ...}.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		// Checks run in parallel under one shared deadline.
		var (
			mu   sync.Mutex
			resp = map[string]string{"status": "ok"}
		)
		eg := new(errgroup.Group)
		for name, checker := range checks.named() {
			eg.Go(func() error {
				state := "ok"
				switch {
				case checker == nil:
					state = "disabled"
				case checker.Ping(ctx) != nil:
					state = "unreachable"
				}
				mu.Lock()
				defer mu.Unlock()
				resp[name] = state
				if state == "unreachable" {
					resp["status"] = "degraded"
				}
				return nil
			})
		}
		_ = eg.Wait()

		status := http.StatusOK
		if resp["status"] != "ok" {
			status = http.StatusServiceUnavailable
		}
		JSON(w, status, resp)
	}
}

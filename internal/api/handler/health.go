package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/kiranshivaraju/facequeue/internal/api/response"
)

const readyCheckTimeout = 2 * time.Second

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the liveness probe. It answers 200 whenever the
// process is serving.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
}

// NewReadyHandler pings every dependency and answers 503 if any is unreachable.
func NewReadyHandler(deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		services := make(map[string]string, len(names))
		degraded := false
		for _, name := range names {
			services[name] = "ok"
			if err := deps[name].Ping(ctx); err != nil {
				services[name] = "degraded"
				degraded = true
			}
		}

		status, code := "ok", http.StatusOK
		if degraded {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		response.JSON(w, code, map[string]any{
			"status":   status,
			"services": services,
		})
	}
}

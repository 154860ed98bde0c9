package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "platecost/internal/log"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health is a liveness handler for infrastructure probes. It always answers
// 200; the database field reports whether the store is reachable.
func Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: databaseStatus(r.Context()),
		Time:     time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		applog.Error(r.Context(), "failed to encode health response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	applog.Debug(r.Context(), "health check responded", "database", resp.Database)
}

func databaseStatus(ctx context.Context) string {
	if repository == nil {
		return "unconfigured"
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := repository.Ping(ctx); err != nil {
		applog.Warn(ctx, "database ping failed", "error", err)
		return "unreachable"
	}
	return "ok"
}

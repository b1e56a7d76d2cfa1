package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	IsConnected() bool
	Ping(ctx context.Context) error
}

// HealthHandler answers load-balancer and uptime checks.
type HealthHandler struct {
	db      Pinger
	started time.Time
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// HandleHealth reports 200 when the store answers a ping, 503 otherwise.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if !h.db.IsConnected() || h.db.Ping(ctx) != nil {
		resp.Status = "degraded"
		resp.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

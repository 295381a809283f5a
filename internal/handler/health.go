package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/docclinic/internal/render"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
	now   func() time.Time
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{
		store: store,
		now:   time.Now,
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Store     string    `json:"store"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "OK", Timestamp: h.now().UTC(), Store: "ok"}
	status := http.StatusOK

	err := h.store.Ping(ctx)
	if err != nil {
		slog.Error("health check: user store unreachable", "error", err)
		resp.Status = "DEGRADED"
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}

	render.JSON(w, status, resp)
}

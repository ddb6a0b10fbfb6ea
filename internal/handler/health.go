package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is anything whose liveness the health check reports, such as
// *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers load balancer and monitoring probes.
type HealthHandler struct {
	Storage string // storage driver in use, reported as-is
	DB      Pinger // nil for the memory driver
}

// Health returns 200 with {"status":"ok"} while storage answers and 503
// otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	body := echo.Map{"status": "ok", "storage": h.Storage}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}

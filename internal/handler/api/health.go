package api

import (
	"context"
	"net/http"

	xhttp "github.com/lblaseygg/minty/pkg/http"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports backing-store connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]HealthChecker)}
}

// AddCheck registers a named dependency check.
func (h *HealthHandler) AddCheck(name string, c HealthChecker) {
	h.checks[name] = c
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

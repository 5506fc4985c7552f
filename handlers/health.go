package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/database"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "error", "database": "disconnected"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *Handler) OpenAPIJSON(c echo.Context) error {
	data, err := h.docs.JSON()
	if err != nil {
		h.logger.Error("failed to render API document", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to render API document"})
	}
	return c.JSONBlob(http.StatusOK, data)
}

func (h *Handler) OpenAPIYAML(c echo.Context) error {
	data, err := h.docs.YAML()
	if err != nil {
		h.logger.Error("failed to render API document", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to render API document"})
	}
	return c.Blob(http.StatusOK, "application/yaml", data)
}

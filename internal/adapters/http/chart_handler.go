package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

// ChartHandler handles chart rendering requests over the JSON API
type ChartHandler struct {
	charts ports.ChartService
	logger *logger.Logger
}

// NewChartHandler creates a new chart handler
func NewChartHandler(charts ports.ChartService, logger *logger.Logger) *ChartHandler {
	return &ChartHandler{
		charts: charts,
		logger: logger,
	}
}

// RenderChart handles POST /api/v1/chart/render. With an empty body the
// default window is rendered; otherwise explicit bounds are honored.
func (h *ChartHandler) RenderChart(c echo.Context) error {
	ctx := c.Request().Context()

	var output string
	var err error

	if c.Request().ContentLength == 0 {
		output, err = h.charts.RenderChart(ctx)
	} else {
		var req ports.RenderRequest
		if bindErr := c.Bind(&req); bindErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
		}
		if valErr := c.Validate(&req); valErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, valErr.Error())
		}
		output, err = h.charts.RenderChartWindow(ctx, req)
	}

	if err != nil {
		h.logger.Error("Chart render failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, ChartResponse{Output: output})
}

// ChartResponse reports where the rendered image was written.
type ChartResponse struct {
	Output string `json:"output"`
}

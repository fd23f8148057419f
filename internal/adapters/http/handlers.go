package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

// MeasurementHandler handles the JSON measurement API
type MeasurementHandler struct {
	measurements ports.MeasurementService
	logger       *logger.Logger
}

// NewMeasurementHandler creates a new measurement handler
func NewMeasurementHandler(measurements ports.MeasurementService, logger *logger.Logger) *MeasurementHandler {
	return &MeasurementHandler{
		measurements: measurements,
		logger:       logger,
	}
}

// CreateMeasurement handles POST /api/v1/measurements
func (h *MeasurementHandler) CreateMeasurement(c echo.Context) error {
	var req ports.AddMeasurementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	m, err := h.measurements.AddMeasurement(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Create measurement failed", "error", err)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, toMeasurementResponse(m))
}

// ListMeasurements handles GET /api/v1/measurements
func (h *MeasurementHandler) ListMeasurements(c echo.Context) error {
	all, err := h.measurements.ListMeasurements(c.Request().Context())
	if err != nil {
		h.logger.Error("List measurements failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read measurements")
	}

	items := make([]MeasurementResponse, 0, len(all))
	for _, m := range all {
		items = append(items, toMeasurementResponse(m))
	}

	return c.JSON(http.StatusOK, MeasurementListResponse{
		Data:  items,
		Total: len(items),
	})
}

// RecentMeasurements handles GET /api/v1/measurements/recent
func (h *MeasurementHandler) RecentMeasurements(c echo.Context) error {
	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter")
		}
		limit = n
	}

	recent, err := h.measurements.RecentMeasurements(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Recent measurements failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read measurements")
	}

	items := make([]MeasurementResponse, 0, len(recent))
	for _, m := range recent {
		items = append(items, toMeasurementResponse(m))
	}

	return c.JSON(http.StatusOK, MeasurementListResponse{
		Data:  items,
		Total: len(items),
	})
}

// toHTTPError maps domain errors onto HTTP status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, entities.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrPlotToolMissing), errors.Is(err, entities.ErrPlotExecution):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, entities.ErrTemplateSubstitution), errors.Is(err, entities.ErrStoreWrite):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
	}
}

func toMeasurementResponse(m entities.Measurement) MeasurementResponse {
	return MeasurementResponse{
		Date:   m.DateString(),
		Weight: m.Weight,
	}
}

// Request/Response types

// MeasurementResponse is the wire form of one measurement.
type MeasurementResponse struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

// MeasurementListResponse wraps an ordered measurement series.
type MeasurementListResponse struct {
	Data  []MeasurementResponse `json:"data"`
	Total int                   `json:"total"`
}

// MessageResponse is a simple human-readable reply.
type MessageResponse struct {
	Message string `json:"message"`
}

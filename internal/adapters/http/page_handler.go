package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/weightwatch/core/internal/application/services"
	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
	"github.com/weightwatch/core/web"
)

// PageHandler serves the browser-facing HTML pages
type PageHandler struct {
	measurements ports.MeasurementService
	charts       ports.ChartService
	templates    *template.Template
	logger       *logger.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(measurements ports.MeasurementService, charts ports.ChartService, logger *logger.Logger) (*PageHandler, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	return &PageHandler{
		measurements: measurements,
		charts:       charts,
		templates:    templates,
		logger:       logger,
	}, nil
}

// IndexPageData is the template data for the index page.
type IndexPageData struct {
	Recent         []RecentRow
	ChartAvailable bool
	ChartVersion   int64
	ChartError     string
}

// RecentRow is one line of the recent-entries table.
type RecentRow struct {
	Date   string
	Weight string
}

// Index handles GET /. The chart is regenerated on every view; a failed
// render degrades to the previous image or a placeholder, the page itself
// always loads.
func (h *PageHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	recent, err := h.measurements.RecentMeasurements(ctx, services.DefaultRecentCount)
	if err != nil {
		h.logger.Error("Failed to load recent measurements", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read measurements")
	}

	data := IndexPageData{}
	for _, m := range recent {
		data.Recent = append(data.Recent, RecentRow{
			Date:   m.DateString(),
			Weight: fmt.Sprintf("%.1f", m.Weight),
		})
	}

	if len(recent) > 0 {
		if _, err := h.charts.RenderChart(ctx); err != nil {
			h.logger.Error("Chart refresh failed", "error", err)
			data.ChartError = chartErrorMessage(err)
		}
	}

	if info, err := os.Stat(h.charts.OutputPath()); err == nil {
		data.ChartAvailable = true
		data.ChartVersion = info.ModTime().Unix()
	}

	return h.renderPage(c, http.StatusOK, "index.html", data)
}

// SubmitWeight handles the POST /weight form: append and redirect home.
func (h *PageHandler) SubmitWeight(c echo.Context) error {
	ctx := c.Request().Context()

	weightStr := c.FormValue("weight")
	weight, err := strconv.ParseFloat(weightStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid weight %q", weightStr))
	}

	var m entities.Measurement
	if date := c.FormValue("date"); date != "" {
		m, err = h.measurements.AddMeasurement(ctx, ports.AddMeasurementRequest{Date: date, Weight: weight})
	} else {
		m, err = h.measurements.AddToday(ctx, weight)
	}
	if err != nil {
		h.logger.Error("Form submission failed", "error", err)
		return toHTTPError(err)
	}

	h.logger.Debugw("Form measurement accepted", "date", m.DateString())

	return c.Redirect(http.StatusSeeOther, "/")
}

// ChartImage handles GET /chart.png, serving the current rendered image.
func (h *PageHandler) ChartImage(c echo.Context) error {
	path := h.charts.OutputPath()
	if _, err := os.Stat(path); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "No chart rendered yet")
	}
	return c.File(path)
}

// Favicon handles GET /favicon.ico.
func (h *PageHandler) Favicon(c echo.Context) error {
	return c.Blob(http.StatusOK, "image/png", web.Favicon)
}

// NotFound renders the HTML error page for unknown routes.
func (h *PageHandler) NotFound(c echo.Context) error {
	return h.renderPage(c, http.StatusNotFound, "error.html", nil)
}

func (h *PageHandler) renderPage(c echo.Context, status int, name string, data interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	if err := h.templates.ExecuteTemplate(c.Response(), name, data); err != nil {
		h.logger.Error("Template execution failed", "template", name, "error", err)
		return err
	}
	return nil
}

// chartErrorMessage keeps tool internals off the page while staying
// actionable for the single user running this at home.
func chartErrorMessage(err error) string {
	switch {
	case errors.Is(err, entities.ErrPlotToolMissing):
		return "gnuplot is not installed on this host"
	case errors.Is(err, entities.ErrPlotExecution):
		return "gnuplot failed to render the chart"
	default:
		return "chart rendering failed"
	}
}

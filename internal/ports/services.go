package ports

import (
	"context"

	"github.com/weightwatch/core/internal/domain/entities"
)

// MeasurementService interface for measurement operations
type MeasurementService interface {
	AddMeasurement(ctx context.Context, req AddMeasurementRequest) (entities.Measurement, error)
	AddToday(ctx context.Context, weight float64) (entities.Measurement, error)
	ListMeasurements(ctx context.Context) ([]entities.Measurement, error)
	RecentMeasurements(ctx context.Context, n int) ([]entities.Measurement, error)
	WeightBounds(ctx context.Context) (min, max float64, ok bool, err error)
}

// ChartService interface for chart rendering operations
type ChartService interface {
	// RenderChart renders the default chart window and returns the image path.
	RenderChart(ctx context.Context) (string, error)
	// RenderChartWindow renders a chart for explicit date/weight bounds.
	RenderChartWindow(ctx context.Context, req RenderRequest) (string, error)
	// OutputPath returns the configured chart image path.
	OutputPath() string
}

// ScriptRenderer substitutes render parameters into the plot script template.
type ScriptRenderer interface {
	Render(params entities.RenderParams) (string, error)
}

// Plotter runs the external plotting tool over a rendered script.
type Plotter interface {
	Plot(ctx context.Context, script string) error
}

// AddMeasurementRequest is the payload for recording a measurement
type AddMeasurementRequest struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Weight float64 `json:"weight" validate:"required,gt=0"`
}

// RenderRequest is the payload for an explicit-bounds chart render.
// Weight bounds are optional as a pair; when omitted the y range is
// computed from the stored data.
type RenderRequest struct {
	DateStart   string   `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateEnd     string   `json:"date_end" validate:"required,datetime=2006-01-02"`
	WeightStart *float64 `json:"weight_start" validate:"omitempty,gt=0"`
	WeightEnd   *float64 `json:"weight_end" validate:"omitempty,gt=0"`
}

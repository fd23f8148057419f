package ports

import (
	"context"

	"github.com/weightwatch/core/internal/domain/entities"
)

// MeasurementRepository defines the interface for measurement data operations
type MeasurementRepository interface {
	// Append writes one measurement to the end of the store.
	Append(ctx context.Context, m entities.Measurement) error
	// ListAll returns every stored measurement in insertion order.
	ListAll(ctx context.Context) ([]entities.Measurement, error)
	// Recent returns up to n measurements, newest first.
	Recent(ctx context.Context, n int) ([]entities.Measurement, error)
	// Count returns the number of stored measurements.
	Count(ctx context.Context) (int, error)
	// Path returns the store file path, for handing to the plotting tool.
	Path() string
}

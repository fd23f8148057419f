package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

// DefaultRecentCount is how many entries the index-page table shows.
const DefaultRecentCount = 7

// MeasurementService handles measurement recording and retrieval
type MeasurementService struct {
	repo   ports.MeasurementRepository
	logger *logger.Logger
	now    func() time.Time
}

// NewMeasurementService creates a new measurement service
func NewMeasurementService(repo ports.MeasurementRepository, logger *logger.Logger) *MeasurementService {
	return &MeasurementService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// AddMeasurement validates and appends a dated measurement.
func (s *MeasurementService) AddMeasurement(ctx context.Context, req ports.AddMeasurementRequest) (entities.Measurement, error) {
	m, err := entities.NewMeasurement(req.Date, req.Weight)
	if err != nil {
		return entities.Measurement{}, err
	}

	if err := s.repo.Append(ctx, m); err != nil {
		return entities.Measurement{}, fmt.Errorf("failed to append measurement: %w", err)
	}

	s.logger.Infow("Measurement recorded", "date", m.DateString(), "weight", m.Weight)

	return m, nil
}

// AddToday appends a measurement stamped with the current local date.
func (s *MeasurementService) AddToday(ctx context.Context, weight float64) (entities.Measurement, error) {
	return s.AddMeasurement(ctx, ports.AddMeasurementRequest{
		Date:   s.now().Format(entities.DateFormat),
		Weight: weight,
	})
}

// ListMeasurements returns the full series in insertion order.
func (s *MeasurementService) ListMeasurements(ctx context.Context) ([]entities.Measurement, error) {
	return s.repo.ListAll(ctx)
}

// RecentMeasurements returns up to n measurements, newest first.
func (s *MeasurementService) RecentMeasurements(ctx context.Context, n int) ([]entities.Measurement, error) {
	if n <= 0 {
		n = DefaultRecentCount
	}
	return s.repo.Recent(ctx, n)
}

// WeightBounds returns the minimum and maximum stored weights. ok is false
// when the store holds no measurements.
func (s *MeasurementService) WeightBounds(ctx context.Context) (min, max float64, ok bool, err error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	if len(all) == 0 {
		return 0, 0, false, nil
	}

	min, max = math.Inf(1), math.Inf(-1)
	for _, m := range all {
		if m.Weight < min {
			min = m.Weight
		}
		if m.Weight > max {
			max = m.Weight
		}
	}

	return min, max, true, nil
}

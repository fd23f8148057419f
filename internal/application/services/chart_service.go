package services

import (
	"context"
	"fmt"
	"time"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/config"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

// ChartService regenerates the weight chart image from the stored series
type ChartService struct {
	measurements ports.MeasurementService
	repo         ports.MeasurementRepository
	renderer     ports.ScriptRenderer
	plotter      ports.Plotter
	cfg          config.PlotConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewChartService creates a new chart service
func NewChartService(
	measurements ports.MeasurementService,
	repo ports.MeasurementRepository,
	renderer ports.ScriptRenderer,
	plotter ports.Plotter,
	cfg config.PlotConfig,
	logger *logger.Logger,
) *ChartService {
	return &ChartService{
		measurements: measurements,
		repo:         repo,
		renderer:     renderer,
		plotter:      plotter,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// RenderChart renders the default window: the last WindowDays days through
// tomorrow, with the y range padded around the stored min/max weights, or
// auto bounds when the store is empty.
func (s *ChartService) RenderChart(ctx context.Context) (string, error) {
	now := s.now()

	yrange, err := s.defaultYRange(ctx)
	if err != nil {
		return "", err
	}

	params := entities.RenderParams{
		DateStart:  now.AddDate(0, 0, -s.cfg.WindowDays).Format(entities.DateFormat),
		DateEnd:    now.AddDate(0, 0, 1).Format(entities.DateFormat),
		YRange:     yrange,
		DataFile:   s.repo.Path(),
		OutputFile: s.cfg.OutputPath,
	}

	return s.render(ctx, params)
}

// RenderChartWindow renders a chart for explicit date bounds. Weight
// bounds are optional as a pair; when omitted the default y range is used.
func (s *ChartService) RenderChartWindow(ctx context.Context, req ports.RenderRequest) (string, error) {
	var yrange entities.RangeSpec
	switch {
	case req.WeightStart != nil && req.WeightEnd != nil:
		yrange = entities.ExplicitRange(*req.WeightStart, *req.WeightEnd)
	case req.WeightStart != nil || req.WeightEnd != nil:
		return "", fmt.Errorf("%w: weight bounds must be given together", entities.ErrInvalidInput)
	default:
		var err error
		yrange, err = s.defaultYRange(ctx)
		if err != nil {
			return "", err
		}
	}

	params := entities.RenderParams{
		DateStart:  req.DateStart,
		DateEnd:    req.DateEnd,
		YRange:     yrange,
		DataFile:   s.repo.Path(),
		OutputFile: s.cfg.OutputPath,
	}

	return s.render(ctx, params)
}

// OutputPath returns the configured chart image path.
func (s *ChartService) OutputPath() string {
	return s.cfg.OutputPath
}

func (s *ChartService) defaultYRange(ctx context.Context) (entities.RangeSpec, error) {
	min, max, ok, err := s.measurements.WeightBounds(ctx)
	if err != nil {
		return entities.RangeSpec{}, fmt.Errorf("failed to compute weight bounds: %w", err)
	}
	if !ok {
		return entities.AutoRange(), nil
	}
	return entities.ExplicitRange(min-s.cfg.WeightPad, max+s.cfg.WeightPad), nil
}

func (s *ChartService) render(ctx context.Context, params entities.RenderParams) (string, error) {
	script, err := s.renderer.Render(params)
	if err != nil {
		return "", err
	}

	if err := s.plotter.Plot(ctx, script); err != nil {
		return "", err
	}

	s.logger.Infow("Chart regenerated",
		"output", params.OutputFile,
		"date_start", params.DateStart,
		"date_end", params.DateEnd,
	)

	return params.OutputFile, nil
}

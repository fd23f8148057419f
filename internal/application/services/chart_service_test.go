package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/config"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

type fakeRepo struct {
	items []entities.Measurement
	path  string
}

func (f *fakeRepo) Append(ctx context.Context, m entities.Measurement) error {
	f.items = append(f.items, m)
	return nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]entities.Measurement, error) {
	return f.items, nil
}

func (f *fakeRepo) Recent(ctx context.Context, n int) ([]entities.Measurement, error) {
	if n > len(f.items) {
		n = len(f.items)
	}
	out := make([]entities.Measurement, 0, n)
	for i := len(f.items) - 1; i >= len(f.items)-n; i-- {
		out = append(out, f.items[i])
	}
	return out, nil
}

func (f *fakeRepo) Count(ctx context.Context) (int, error) { return len(f.items), nil }

func (f *fakeRepo) Path() string { return f.path }

type captureRenderer struct {
	params entities.RenderParams
	script string
	err    error
}

func (c *captureRenderer) Render(params entities.RenderParams) (string, error) {
	c.params = params
	if c.err != nil {
		return "", c.err
	}
	return c.script, nil
}

type capturePlotter struct {
	script string
	err    error
}

func (p *capturePlotter) Plot(ctx context.Context, script string) error {
	p.script = script
	return p.err
}

func newTestChartService(t *testing.T, repo *fakeRepo, renderer *captureRenderer, plotter *capturePlotter) *ChartService {
	t.Helper()

	cfg := config.PlotConfig{
		Binary:     "gnuplot",
		OutputPath: "/tmp/weightwatch-test.png",
		Timeout:    time.Second,
		WindowDays: 28,
		WeightPad:  5,
	}

	svc := NewChartService(
		NewMeasurementService(repo, logger.NewNop()),
		repo,
		renderer,
		plotter,
		cfg,
		logger.NewNop(),
	)
	svc.now = func() time.Time { return time.Date(2024, 6, 29, 10, 0, 0, 0, time.UTC) }
	return svc
}

func weighed(t *testing.T, date string, weight float64) entities.Measurement {
	t.Helper()
	m, err := entities.NewMeasurement(date, weight)
	if err != nil {
		t.Fatalf("bad test measurement: %v", err)
	}
	return m
}

func TestRenderChartDefaultWindow(t *testing.T) {
	repo := &fakeRepo{path: "/data/weights.dat"}
	repo.items = []entities.Measurement{
		weighed(t, "2024-06-01", 185.4),
		weighed(t, "2024-06-02", 184.9),
	}
	renderer := &captureRenderer{script: "rendered"}
	plotter := &capturePlotter{}
	svc := newTestChartService(t, repo, renderer, plotter)

	output, err := svc.RenderChart(context.Background())
	if err != nil {
		t.Fatalf("RenderChart returned error: %v", err)
	}
	if output != "/tmp/weightwatch-test.png" {
		t.Errorf("output = %q, want configured path", output)
	}

	p := renderer.params
	if p.DateStart != "2024-06-01" {
		t.Errorf("DateStart = %s, want 2024-06-01 (28 days back)", p.DateStart)
	}
	if p.DateEnd != "2024-06-30" {
		t.Errorf("DateEnd = %s, want 2024-06-30 (tomorrow)", p.DateEnd)
	}
	if p.DataFile != "/data/weights.dat" {
		t.Errorf("DataFile = %s, want the store path", p.DataFile)
	}
	if p.YRange.Auto {
		t.Fatal("y range should be explicit when data exists")
	}
	if p.YRange.Start != 179.9 || p.YRange.End != 190.4 {
		t.Errorf("y range = [%v, %v], want padded [179.9, 190.4]", p.YRange.Start, p.YRange.End)
	}

	if plotter.script != "rendered" {
		t.Errorf("plotter received %q, want the rendered script", plotter.script)
	}
}

func TestRenderChartEmptyStoreUsesAutoRange(t *testing.T) {
	repo := &fakeRepo{path: "/data/weights.dat"}
	renderer := &captureRenderer{script: "rendered"}
	svc := newTestChartService(t, repo, renderer, &capturePlotter{})

	if _, err := svc.RenderChart(context.Background()); err != nil {
		t.Fatalf("RenderChart returned error: %v", err)
	}
	if !renderer.params.YRange.Auto {
		t.Error("y range should be auto for an empty store")
	}
}

func TestRenderChartWindowExplicitBounds(t *testing.T) {
	repo := &fakeRepo{path: "/data/weights.dat"}
	renderer := &captureRenderer{script: "rendered"}
	svc := newTestChartService(t, repo, renderer, &capturePlotter{})

	start, end := 180.0, 250.0
	_, err := svc.RenderChartWindow(context.Background(), ports.RenderRequest{
		DateStart:   "2024-06-01",
		DateEnd:     "2024-06-30",
		WeightStart: &start,
		WeightEnd:   &end,
	})
	if err != nil {
		t.Fatalf("RenderChartWindow returned error: %v", err)
	}

	if got := renderer.params.YRange.Clause(); got != "set yrange [180:250]" {
		t.Errorf("yrange clause = %q, want %q", got, "set yrange [180:250]")
	}
}

func TestRenderChartWindowLoneWeightBound(t *testing.T) {
	repo := &fakeRepo{path: "/data/weights.dat"}
	svc := newTestChartService(t, repo, &captureRenderer{script: "rendered"}, &capturePlotter{})

	start := 180.0
	_, err := svc.RenderChartWindow(context.Background(), ports.RenderRequest{
		DateStart:   "2024-06-01",
		DateEnd:     "2024-06-30",
		WeightStart: &start,
	})
	if !errors.Is(err, entities.ErrInvalidInput) {
		t.Fatalf("RenderChartWindow error = %v, want ErrInvalidInput", err)
	}
}

func TestRenderChartPlotFailurePropagates(t *testing.T) {
	repo := &fakeRepo{path: "/data/weights.dat"}
	repo.items = []entities.Measurement{weighed(t, "2024-06-01", 185.4)}
	plotter := &capturePlotter{err: entities.ErrPlotExecution}
	svc := newTestChartService(t, repo, &captureRenderer{script: "rendered"}, plotter)

	if _, err := svc.RenderChart(context.Background()); !errors.Is(err, entities.ErrPlotExecution) {
		t.Fatalf("RenderChart error = %v, want ErrPlotExecution", err)
	}
}

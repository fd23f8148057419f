package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/logger"
)

// FileMeasurementRepository stores measurements in an append-only text
// file, one "YYYY-MM-DD <weight>" line per measurement. The file is the
// single source of truth and is also read directly by the plotting tool,
// so the line format must stay plain two-column text.
type FileMeasurementRepository struct {
	path   string
	logger *logger.Logger

	// Serializes appends so concurrent form submissions cannot
	// interleave partial lines.
	mu sync.Mutex
}

// NewFileMeasurementRepository creates the store directory if needed and
// returns a repository over the given file path.
func NewFileMeasurementRepository(path string, appLogger *logger.Logger) (*FileMeasurementRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &FileMeasurementRepository{
		path:   path,
		logger: appLogger.WithComponent("store"),
	}, nil
}

// Append writes one measurement line and flushes it to disk.
func (r *FileMeasurementRepository) Append(ctx context.Context, m entities.Measurement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreWrite, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, m.Line()); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreWrite, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStoreWrite, err)
	}

	return nil
}

// ListAll returns every stored measurement in insertion order. Lines that
// fail to parse are skipped with a warning rather than aborting the read.
func (r *FileMeasurementRepository) ListAll(ctx context.Context) ([]entities.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No file yet means no measurements, not an error.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer f.Close()

	var measurements []entities.Measurement
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		m, err := entities.ParseMeasurementLine(line)
		if err != nil {
			r.logger.LogSkippedLine(r.path, lineNo, err)
			continue
		}
		measurements = append(measurements, m)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	return measurements, nil
}

// Recent returns up to n measurements, newest first.
func (r *FileMeasurementRepository) Recent(ctx context.Context, n int) ([]entities.Measurement, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if n > len(all) {
		n = len(all)
	}

	recent := make([]entities.Measurement, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		recent = append(recent, all[i])
	}

	return recent, nil
}

// Count returns the number of stored measurements.
func (r *FileMeasurementRepository) Count(ctx context.Context) (int, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Path returns the store file path.
func (r *FileMeasurementRepository) Path() string {
	return r.path
}

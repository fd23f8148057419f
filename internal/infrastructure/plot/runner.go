package plot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/config"
	"github.com/weightwatch/core/internal/infrastructure/logger"
)

// GnuplotRunner invokes the external plotting tool over a rendered script.
type GnuplotRunner struct {
	binary  string
	timeout time.Duration
	logger  *logger.Logger
}

// NewGnuplotRunner creates a runner from the plot configuration.
func NewGnuplotRunner(cfg config.PlotConfig, appLogger *logger.Logger) *GnuplotRunner {
	return &GnuplotRunner{
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
		logger:  appLogger.WithComponent("plot"),
	}
}

// Plot writes the script to a temporary file and runs the plotting tool
// over it, waiting for completion. A transient execution failure is
// retried once; a missing tool or an expired deadline is not.
func (g *GnuplotRunner) Plot(ctx context.Context, script string) error {
	binPath, err := exec.LookPath(g.binary)
	if err != nil {
		return fmt.Errorf("%w: %q is not installed (install gnuplot and ensure it is on PATH)",
			entities.ErrPlotToolMissing, g.binary)
	}

	scriptPath := filepath.Join(os.TempDir(), "weightwatch-"+uuid.NewString()+".gp")
	if err := os.WriteFile(scriptPath, []byte(script), 0o600); err != nil {
		return fmt.Errorf("failed to write plot script: %w", err)
	}
	defer os.Remove(scriptPath)

	err = g.run(ctx, binPath, scriptPath)
	if err == nil {
		return nil
	}
	if isContextErr(err) {
		return fmt.Errorf("%w: timed out after %s", entities.ErrPlotExecution, g.timeout)
	}

	g.logger.Warnw("Plot run failed, retrying once", "error", err.Error())
	retryErr := g.run(ctx, binPath, scriptPath)
	if retryErr == nil {
		return nil
	}
	if isContextErr(retryErr) {
		return fmt.Errorf("%w: timed out after %s", entities.ErrPlotExecution, g.timeout)
	}

	return retryErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func (g *GnuplotRunner) run(ctx context.Context, binPath, scriptPath string) error {
	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binPath, scriptPath)
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := float64(time.Since(start).Nanoseconds()) / 1000000

	if err != nil {
		if runCtx.Err() != nil {
			g.logger.LogPlotResult(scriptPath, duration, runCtx.Err())
			return runCtx.Err()
		}

		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		wrapped := fmt.Errorf("%w: %s", entities.ErrPlotExecution, msg)
		g.logger.LogPlotResult(scriptPath, duration, wrapped)
		return wrapped
	}

	g.logger.LogPlotResult(scriptPath, duration, nil)
	return nil
}

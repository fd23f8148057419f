package commands

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/weightwatch/core/internal/adapters/repository"
	"github.com/weightwatch/core/internal/application/services"
	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/config"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/infrastructure/plot"
	"github.com/weightwatch/core/internal/infrastructure/server"
	"github.com/weightwatch/core/internal/ports"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the WeightWatch server",
		Long:  "Start the WeightWatch server with the web pages, the JSON API and all configured middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewAddCommand creates the add command for recording from the shell
func NewAddCommand() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a measurement",
		Long:  "Append one weight measurement to the store without going through the web form",
		Run: func(cmd *cobra.Command, args []string) {
			weight, _ := cmd.Flags().GetFloat64("weight")
			date, _ := cmd.Flags().GetString("date")

			if weight == 0 {
				log.Fatal("A weight value is required")
			}

			addMeasurement(date, weight)
		},
	}

	addCmd.Flags().Float64("weight", 0, "Weight value (required)")
	addCmd.Flags().String("date", "", "Measurement date as YYYY-MM-DD (defaults to today)")

	return addCmd
}

// NewRenderCommand creates the render command for one-shot chart output
func NewRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Regenerate the chart image",
		Long:  "Render the default chart window to the configured output path and exit",
		Run: func(cmd *cobra.Command, args []string) {
			renderChart()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print WeightWatch version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fmt.Println("WeightWatch (unknown version)")
				return
			}
			fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	srv, err := server.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting WeightWatch server",
		"port", cfg.Server.Port,
		"store", cfg.Store.Path,
		"environment", cfg.App.Environment,
	)

	if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil {
		appLogger.Fatal("Server failed to start", "error", err)
	}
}

func addMeasurement(date string, weight float64) {
	cfg, appLogger, store := setup()
	defer appLogger.Sync()

	measurementService := services.NewMeasurementService(store, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var m entities.Measurement
	var err error
	if date == "" {
		m, err = measurementService.AddToday(ctx, weight)
	} else {
		m, err = measurementService.AddMeasurement(ctx, ports.AddMeasurementRequest{Date: date, Weight: weight})
	}
	if err != nil {
		log.Fatalf("Failed to record measurement: %v", err)
	}

	fmt.Printf("Recorded %s -> %s\n", m.Line(), cfg.Store.Path)
}

func renderChart() {
	cfg, appLogger, store := setup()
	defer appLogger.Sync()

	measurementService := services.NewMeasurementService(store, appLogger)
	chartService := services.NewChartService(
		measurementService,
		store,
		plot.NewScriptRenderer(),
		plot.NewGnuplotRunner(cfg.Plot, appLogger),
		cfg.Plot,
		appLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	output, err := chartService.RenderChart(ctx)
	if err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}

	fmt.Printf("Chart written to %s\n", output)
}

func setup() (*config.Config, *logger.Logger, *repository.FileMeasurementRepository) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	store, err := repository.NewFileMeasurementRepository(cfg.Store.Path, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	return cfg, appLogger, store
}

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/weightwatch/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weightwatch",
		Short: "WeightWatch server",
		Long:  `WeightWatch is a single-user web application for recording dated body-weight measurements and charting the series with gnuplot.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewAddCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}

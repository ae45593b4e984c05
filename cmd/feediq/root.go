package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/feediq/internal/app"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
	"github.com/zatekoja/feediq/pkg/config"
)

var (
	// Global flags
	configPath string
	storageArg string
	logLevel   string
	logFile    string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "feediq",
	Short: "FeedIQ feedback intake and reporting",
	Long: `feediq collects visitor feedback through a short conversation and
reports on everything collected so far.

It reads the same configuration as the API server (.env, FEEDIQ_CONFIG and
environment variables), so both operate on the same store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := os.Setenv("FEEDIQ_CONFIG", configPath); err != nil {
				return err
			}
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if storageArg != "" {
			loaded.Storage.Backend = storageArg
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		cfg = loaded

		out, err := logOutput(cmd)
		if err != nil {
			return err
		}
		observability.InitLoggerTo(out, "feediq-cli", cfg.Environment, cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (overrides FEEDIQ_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&storageArg, "storage", "", "storage backend: memory, file, redis or postgres")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file instead of stderr")

	rootCmd.AddCommand(chatCmd, exportCmd, dashboardCmd, seedCmd)
}

// logOutput keeps the chat screen clean unless a log file was requested.
func logOutput(cmd *cobra.Command) (io.Writer, error) {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, nil
	}
	if cmd == chatCmd {
		return io.Discard, nil
	}
	return cmd.ErrOrStderr(), nil
}

// withApp wires the configured backend for the duration of fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

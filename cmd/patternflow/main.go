// patternflow discovers hierarchical activities in event logs from
// repeated and tandem patterns, and re-logs the log at the activity level.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logflow/patternflow/pkg/config"
	"github.com/logflow/patternflow/pkg/telemetry"
	"github.com/logflow/patternflow/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	verbose    bool
	configFile string
)

// Loaded by the root PersistentPreRunE.
var (
	cfg      *config.Config
	manager  *config.Manager
	logger   *slog.Logger
	shutdown func(context.Context) error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if shutdown != nil {
		if serr := shutdown(context.Background()); serr != nil && logger != nil {
			logger.Warn("telemetry shutdown failed", "error", serr)
		}
	}
	if err != nil {
		tui.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "patternflow",
	Short: "patternflow - discover activities in event logs",
	Long: `patternflow finds repeated behaviour in process event logs (tandem arrays,
maximal and super-maximal repeats), organises it into a hierarchy of
activities and segments every trace into activity instances.

Inputs may be local files, http(s) URLs or s3://bucket/key objects in XES,
CSV or XLSX format, optionally gzip-compressed.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and progress output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Read configuration from this file only")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(relogCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads configuration, installs the logger and starts tracing.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if configFile != "" {
		manager = config.NewManagerWithPaths(configFile)
	} else {
		manager = config.Global()
	}
	if err := manager.Load(); err != nil {
		return err
	}
	cfg = manager.Get()

	for _, path := range manager.GetPaths() {
		logger.Debug("config loaded", "path", path)
	}

	if cfg.Telemetry.Enabled {
		otlp := telemetry.DefaultOTLPConfig(cfg.Telemetry.ServiceName)
		otlp.Endpoint = cfg.Telemetry.Endpoint
		otlp.InsecureTLS = cfg.Telemetry.Insecure
		otlp.SamplingRatio = cfg.Telemetry.SamplingRatio
		otlp.ServiceVersion = version

		fn, err := telemetry.InitOTLP(cmd.Context(), otlp)
		if err != nil {
			logger.Warn("telemetry disabled", "endpoint", otlp.Endpoint, "error", err)
		} else {
			shutdown = fn
		}
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/config"
	"github.com/logflow/patternflow/pkg/discovery"
	pferrors "github.com/logflow/patternflow/pkg/errors"
	"github.com/logflow/patternflow/pkg/report"
	"github.com/logflow/patternflow/pkg/storage"
	"github.com/logflow/patternflow/pkg/tui"
	"github.com/logflow/patternflow/pkg/watch"
	"github.com/logflow/patternflow/pkg/writer"
)

// Discovery flags
var (
	patternsFlag  string
	strategyFlag  string
	maxPeriod     int
	levelFlag     int
	noNarrow      bool
	unattachedMin int
	workersFlag   int
	eventClass    string
	jsonOutput    bool
	outputFile    string
	watchInput    bool
	traceLimit    int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover activities and segment every trace into instances",
	Long: `Run one discovery pass: mine patterns, build the activity forest and
extract the activity instances of every trace.

Examples:
  patternflow discover -i log.xes
  patternflow discover -i log.csv --patterns mr --strategy merged
  patternflow discover -i s3://bucket/log.xes.gz -o instances.parquet
  patternflow discover -i log.xes --unattached-min 3 --json
  patternflow discover -i log.xes --watch`,
	RunE: runDiscover,
}

func init() {
	addInputFlags(discoverCmd)
	addDiscoveryFlags(discoverCmd)

	discoverCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	discoverCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write instances to this Parquet file")
	discoverCmd.Flags().BoolVar(&watchInput, "watch", false, "Re-run discovery whenever the input file changes")
	discoverCmd.Flags().IntVar(&traceLimit, "limit", 20, "Number of traces to print (0 prints all)")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input log (path, http(s) URL or s3://bucket/key)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (xes, csv, xlsx) - auto-detected if not specified")
	cmd.Flags().BoolVar(&sortEvents, "sort", false, "Order each trace by timestamp after reading")
	cmd.MarkFlagRequired("input")
}

func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&patternsFlag, "patterns", "p", "", "Pattern kind (pta, mta, mr, smr, nsmr)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Repeat search strategy (per-trace, merged)")
	cmd.Flags().IntVar(&maxPeriod, "max-period", 0, "Maximum tandem array period")
	cmd.Flags().IntVar(&levelFlag, "level", 0, "Level assigned to discovered activities")
	cmd.Flags().BoolVar(&noNarrow, "no-narrow", false, "Keep the widest matching activity for each instance")
	cmd.Flags().IntVar(&unattachedMin, "unattached-min", 0, "Discover again in unattached gaps of at least N events")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Per-trace parallelism (0 = one per CPU)")
	cmd.Flags().StringVar(&eventClass, "event-class", "", "Event classifier (activity, activity+resource)")
}

// effectiveConfig returns the loaded configuration with flags applied.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	c := *cfg
	flags := cmd.Flags()

	if flags.Changed("patterns") {
		c.Discovery.Patterns = patternsFlag
	}
	if flags.Changed("strategy") {
		c.Discovery.Strategy = strategyFlag
	}
	if flags.Changed("max-period") {
		c.Discovery.MaxTandemPeriod = maxPeriod
	}
	if flags.Changed("level") {
		c.Discovery.Level = levelFlag
	}
	if flags.Changed("no-narrow") {
		c.Discovery.Narrow = !noNarrow
	}
	if flags.Changed("unattached-min") {
		c.Discovery.UnattachedMinEvents = unattachedMin
	}
	if flags.Changed("workers") {
		c.Discovery.Workers = workersFlag
	}
	if flags.Changed("event-class") {
		c.Discovery.EventClass = eventClass
	}
	if flags.Changed("undefined") {
		c.Relog.Undefined = undefinedFlag
	}
	if flags.Changed("iterations") {
		c.Discovery.MaxIterations = iterations
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func discoveryOptions(c *config.Config) (discovery.Options, error) {
	opts, err := c.DiscoveryOptions()
	if err != nil {
		return opts, err
	}
	opts.Logger = logger
	return opts, nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	c, err := effectiveConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := discoveryOptions(c)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := discoverOnce(ctx, c, opts, inputFile); err != nil {
		return err
	}
	if !watchInput {
		return nil
	}
	return watchAndDiscover(ctx, c, opts)
}

func discoverOnce(ctx context.Context, c *config.Config, opts discovery.Options, path string) error {
	log, err := loadLog(ctx, path)
	if err != nil {
		return err
	}

	res, err := discovery.Discover(ctx, log, opts)
	if err != nil {
		return pferrors.Wrap(err, pferrors.CodeDiscoveryFailed, "discovery failed").
			WithContext("path", path)
	}
	logger.Info("discovery done",
		"run_id", res.RunID.String(),
		"activities", res.Forest.Len(),
		"instances", res.InstanceCount(),
		"elapsed", res.Duration)

	if outputFile != "" {
		if err := writeInstances(ctx, c, log, res, outputFile); err != nil {
			return err
		}
	}

	out := os.Stdout
	if jsonOutput {
		return writeJSON(out, log, res)
	}

	tui.PrintHeader(out, version)
	tui.PrintSummary(out, log, res)
	tui.PrintForest(out, res.Forest)
	tui.PrintInstances(out, log, res, traceLimit)
	tui.PrintReport(out, report.Build(res))
	return nil
}

func writeInstances(ctx context.Context, c *config.Config, log *model.Log, res *discovery.Result, path string) error {
	f, err := storage.OpenWriter(ctx, path, c.StorageOptions())
	if err != nil {
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to open output").WithContext("path", path)
	}

	w, err := writer.NewInstanceWriter(f, c.WriterConfig())
	if err != nil {
		f.Close()
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to create instance writer")
	}
	if err := w.WriteResult(ctx, log, res); err != nil {
		w.Close()
		f.Close()
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to write instances").WithContext("path", path)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to finish parquet file").WithContext("path", path)
	}
	if err := f.Close(); err != nil {
		return pferrors.Wrap(err, pferrors.CodeWriteFailed, "failed to close output").WithContext("path", path)
	}

	logger.Info("instances written", "path", path, "rows", w.RowsWritten())
	return nil
}

func watchAndDiscover(ctx context.Context, c *config.Config, opts discovery.Options) error {
	if scheme, _, _ := storage.ParsePath(inputFile); scheme != "file" {
		return fmt.Errorf("--watch needs a local input, got %s", inputFile)
	}

	w, err := watch.NewWatcher(watch.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(inputFile); err != nil {
		return err
	}
	w.OnChange = func(ctx context.Context, path string) error {
		logger.Info("input changed, discovering again", "path", filepath.Base(path))
		return discoverOnce(ctx, c, opts, path)
	}

	logger.Info("watching for changes", "path", inputFile)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Package discovery runs activity discovery passes over event logs and
// derives abstracted logs from the instances found.
package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
	"github.com/logflow/patternflow/pkg/eventclass"
	"github.com/logflow/patternflow/pkg/patterns"
	"github.com/logflow/patternflow/pkg/telemetry"
)

// Options configures a discovery pass.
type Options struct {
	Patterns        patterns.Kind
	Strategy        patterns.Strategy
	MaxTandemPeriod int

	// Level tags every activity created by the pass.
	Level int

	// Narrow replaces each instance by its most specific matching
	// descendant activity.
	Narrow bool

	// UnattachedMinEvents enables a second pass that discovers
	// activities in unattached gaps of at least this many events.
	UnattachedMinEvents int

	// Workers bounds per-trace parallelism. Zero or less means one
	// worker per CPU.
	Workers int

	// Extractor classifies events. Defaults to eventclass.ByActivity.
	Extractor eventclass.Extractor

	// Namer labels activities. Defaults to NameByEvents over the log.
	Namer activities.Namer

	Logger *slog.Logger
}

// DefaultOptions returns the options used by the CLI when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		Patterns:        patterns.PrimitiveTandemArrays,
		Strategy:        patterns.PerTrace,
		MaxTandemPeriod: 10,
		Narrow:          true,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) patternOptions() patterns.Options {
	return patterns.Options{
		Kind:            o.Patterns,
		Strategy:        o.Strategy,
		MaxTandemPeriod: o.MaxTandemPeriod,
		Workers:         o.Workers,
		Logger:          o.Logger,
	}
}

// Result holds everything produced by one discovery pass.
type Result struct {
	RunID     uuid.UUID
	Hashed    [][]eventclass.Symbol
	Patterns  [][]patterns.Span
	Repeats   []activities.AnchoredSpan
	Forest    *activities.Forest
	Instances [][]activities.Instance
	Duration  time.Duration
}

// InstanceCount returns the number of instances over all traces.
func (r *Result) InstanceCount() int {
	n := 0
	for _, trace := range r.Instances {
		n += len(trace)
	}
	return n
}

// Discover runs one pass over log.
func Discover(ctx context.Context, log *model.Log, opts Options) (*Result, error) {
	if opts.Namer == nil {
		opts.Namer = NameByEvents(log)
	}
	hashed := eventclass.HashLog(log, opts.Extractor)

	res, err := DiscoverHashed(ctx, hashed, opts)
	if err != nil {
		return nil, err
	}

	if opts.UnattachedMinEvents > 0 && res.Forest.Len() > 0 {
		if err := discoverInGaps(ctx, log, res, opts); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// DiscoverHashed runs one pass over an already classified log. Names come
// from opts.Namer only.
func DiscoverHashed(ctx context.Context, hashed [][]eventclass.Symbol, opts Options) (res *Result, err error) {
	started := time.Now()
	res = &Result{RunID: uuid.New(), Hashed: hashed}
	logger := opts.logger().With("run_id", res.RunID.String())

	ctx, span := telemetry.StartSpan(ctx, "discovery.Discover",
		attribute.String("run_id", res.RunID.String()),
		attribute.String("patterns", opts.Patterns.String()),
		attribute.String("strategy", opts.Strategy.String()),
		attribute.Int("traces", len(hashed)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	res.Patterns, err = patterns.Find(ctx, hashed, opts.patternOptions())
	if err != nil {
		return nil, err
	}

	res.Repeats = activities.BuildRepeatSets(hashed, res.Patterns)
	res.Forest = activities.BuildForest(hashed, res.Repeats, opts.Level, opts.Namer)
	logger.Debug("discovery: forest built",
		"repeats", len(res.Repeats),
		"activities", res.Forest.Len(),
		"roots", len(res.Forest.Roots()))

	res.Instances, err = activities.NewExtractor(res.Forest, opts.Narrow).Log(ctx, hashed, opts.Workers)
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("activities", res.Forest.Len()),
		attribute.Int("instances", res.InstanceCount()),
	)
	logger.Debug("discovery: instances extracted",
		"traces", len(hashed),
		"instances", res.InstanceCount(),
		"duration", res.Duration)
	return res, nil
}

// discoverInGaps mines the log of unattached events, merges the activities
// found there into the forest and extracts instances inside the gaps.
func discoverInGaps(ctx context.Context, log *model.Log, res *Result, opts Options) error {
	gapLog := UnattachedLog(log, res.Instances)
	if gapLog.EventCount() == 0 {
		return nil
	}

	gapOpts := opts
	gapOpts.Level = opts.Level + 1
	gapOpts.Namer = NameByEvents(gapLog)
	gapOpts.UnattachedMinEvents = 0

	gaps, err := Discover(ctx, gapLog, gapOpts)
	if err != nil {
		return err
	}

	before := res.InstanceCount()
	res.Forest = res.Forest.Merge(gaps.Forest)
	res.Instances = activities.AddUnattached(res.Hashed, res.Forest, res.Instances, opts.UnattachedMinEvents, opts.Narrow)

	opts.logger().Debug("discovery: unattached pass",
		"run_id", res.RunID.String(),
		"activities", gaps.Forest.Len(),
		"instances_added", res.InstanceCount()-before)
	return nil
}

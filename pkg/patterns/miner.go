package patterns

import (
	"context"
	"log/slog"

	"github.com/logflow/patternflow/internal/pool"
)

// Options configures a discovery run.
type Options struct {
	Kind     Kind
	Strategy Strategy

	// MaxTandemPeriod bounds the period of tandem arrays. Zero or less
	// leaves it unbounded.
	MaxTandemPeriod int

	// Workers bounds per-trace parallelism. Zero or less means one
	// worker per CPU.
	Workers int

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Find discovers the patterns selected by opts in every trace. The result
// is aligned with log. Tandem arrays are always found per trace and are
// reported by their first period. Only cancellation of ctx fails a run.
func Find[T comparable](ctx context.Context, log [][]T, opts Options) ([][]Span, error) {
	if opts.Kind.IsTandem() {
		arrays, err := FindTandem(ctx, log, opts)
		if err != nil {
			return nil, err
		}
		out := make([][]Span, len(arrays))
		for i, trace := range arrays {
			for _, a := range trace {
				out[i] = append(out[i], a.Span)
			}
		}
		return out, nil
	}

	if opts.Strategy == MergedTrace {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := FindMergedRepeats(log, opts.Kind)
		logFound(opts, log, out)
		return out, nil
	}

	out := make([][]Span, len(log))
	err := pool.ForEach(ctx, len(log), opts.Workers, func(_ context.Context, i int) error {
		out[i] = FindTraceRepeats(log[i], opts.Kind)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logFound(opts, log, out)
	return out, nil
}

// FindTandem returns the tandem arrays of every trace, aligned with log.
// It treats any non-tandem kind as PrimitiveTandemArrays.
func FindTandem[T comparable](ctx context.Context, log [][]T, opts Options) ([][]TandemArray, error) {
	find := FindPrimitiveTandemArrays[T]
	if opts.Kind == MaximalTandemArrays {
		find = FindMaximalTandemArrays[T]
	}

	out := make([][]TandemArray, len(log))
	err := pool.ForEach(ctx, len(log), opts.Workers, func(_ context.Context, i int) error {
		out[i] = find(log[i], opts.MaxTandemPeriod)
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, trace := range out {
		total += len(trace)
	}
	opts.logger().Debug("patterns: tandem arrays found",
		"kind", opts.Kind.String(),
		"traces", len(log),
		"arrays", total,
		"max_period", opts.MaxTandemPeriod)
	return out, nil
}

func logFound[T comparable](opts Options, log [][]T, out [][]Span) {
	total := 0
	for _, spans := range out {
		total += len(spans)
	}
	opts.logger().Debug("patterns: repeats found",
		"kind", opts.Kind.String(),
		"strategy", opts.Strategy.String(),
		"traces", len(log),
		"repeats", total)
}

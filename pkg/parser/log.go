package parser

import (
	"context"
	"errors"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/logflow/patternflow/internal/model"
)

// LogBuilder groups events into traces by case id. Traces appear in the
// order their first event was seen; events keep arrival order.
type LogBuilder struct {
	log   *model.Log
	index map[string]int
}

// NewLogBuilder returns an empty builder.
func NewLogBuilder() *LogBuilder {
	return &LogBuilder{
		log:   &model.Log{},
		index: make(map[string]int),
	}
}

// Add appends e to the trace of its case. The builder keeps a copy of
// the event value; e itself is not retained.
func (b *LogBuilder) Add(e *model.Event) {
	i, ok := b.index[string(e.CaseID)]
	if !ok {
		i = len(b.log.Traces)
		b.index[string(e.CaseID)] = i
		b.log.Traces = append(b.log.Traces, &model.Trace{CaseID: string(e.CaseID)})
	}
	tr := b.log.Traces[i]
	tr.Events = append(tr.Events, *e)
}

// Log returns the built log.
func (b *LogBuilder) Log() *model.Log {
	return b.log
}

// SortByTimestamp stably orders every trace by event timestamp.
func SortByTimestamp(log *model.Log) {
	for _, tr := range log.Traces {
		events := tr.Events
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Timestamp < events[j].Timestamp
		})
	}
}

// ReadOptions configures ReadLog.
type ReadOptions struct {
	// SortByTimestamp orders each trace by timestamp after reading.
	SortByTimestamp bool

	// OnEvent is called with the running event count after each event.
	OnEvent func(n int)
}

// ReadLog runs p over r and collects the events into a log.
func ReadLog(ctx context.Context, p Parser, r io.Reader, opts ReadOptions) (*model.Log, error) {
	events := make(chan *model.Event, 1024)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return p.Parse(gctx, r, events)
	})

	b := NewLogBuilder()
	n := 0
	for e := range events {
		b.Add(e)
		n++
		if opts.OnEvent != nil {
			opts.OnEvent(n)
		}
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrContextCanceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	log := b.Log()
	if opts.SortByTimestamp {
		SortByTimestamp(log)
	}
	return log, nil
}

package discovery

import (
	"fmt"
	"strings"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
)

// UndefinedActivityName labels placeholder events for unattached gaps.
const UndefinedActivityName = "UNDEFINED_ACTIVITY"

// UndefStrategy controls how unattached gaps appear in a relogged trace.
type UndefStrategy uint8

const (
	// DontInsert drops unattached events.
	DontInsert UndefStrategy = iota
	// InsertAsSingleEvent replaces each gap by one placeholder event.
	InsertAsSingleEvent
	// InsertAllEvents copies the unattached events unchanged.
	InsertAllEvents
)

// String returns the strategy name.
func (s UndefStrategy) String() string {
	switch s {
	case DontInsert:
		return "dont-insert"
	case InsertAsSingleEvent:
		return "single-event"
	case InsertAllEvents:
		return "all-events"
	default:
		return "unknown"
	}
}

// ParseUndefStrategy parses a strategy name.
func ParseUndefStrategy(s string) (UndefStrategy, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "dont-insert", "drop", "none":
		return DontInsert, nil
	case "single-event", "insert-as-single-event", "placeholder":
		return InsertAsSingleEvent, nil
	case "all-events", "insert-all-events", "keep":
		return InsertAllEvents, nil
	default:
		return 0, fmt.Errorf("discovery: unknown undefined-activity strategy %q", s)
	}
}

// RelogOptions configures Relog.
type RelogOptions struct {
	Undefined UndefStrategy

	// Placeholder names gap events under InsertAsSingleEvent. Defaults
	// to UndefinedActivityName.
	Placeholder string
}

// Relog builds a log with one event per activity instance. Each activity
// event carries the events it covers as Underlying and takes the
// timestamp of the first of them.
func Relog(log *model.Log, forest *activities.Forest, instances [][]activities.Instance, opts RelogOptions) *model.Log {
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = UndefinedActivityName
	}

	out := &model.Log{Traces: make([]*model.Trace, len(log.Traces))}
	for i, tr := range log.Traces {
		var trace []activities.Instance
		if i < len(instances) {
			trace = instances[i]
		}

		nt := &model.Trace{CaseID: tr.CaseID}
		caseID := []byte(tr.CaseID)

		onGap := func(start, end int) {
			switch opts.Undefined {
			case InsertAsSingleEvent:
				nt.Events = append(nt.Events, model.Event{
					CaseID:    caseID,
					Activity:  []byte(placeholder),
					Timestamp: tr.Events[start].Timestamp,
				})
			case InsertAllEvents:
				for j := start; j < end; j++ {
					nt.Events = append(nt.Events, tr.Events[j].Clone())
				}
			}
		}

		onInstance := func(in activities.Instance) {
			covered := tr.Events[in.Start:in.End()]
			ev := model.Event{
				CaseID:     caseID,
				Activity:   []byte(forest.Node(in.Node).Name),
				Timestamp:  covered[0].Timestamp,
				Underlying: make([]model.Event, len(covered)),
			}
			for j := range covered {
				ev.Underlying[j] = covered[j].Clone()
			}
			nt.Events = append(nt.Events, ev)
		}

		activities.Walk(len(tr.Events), trace, onGap, onInstance)
		out.Traces[i] = nt
	}
	return out
}

// CountUnderlyingEvents counts the original events behind log. An event
// without underlying events counts as one.
func CountUnderlyingEvents(log *model.Log) int {
	n := 0
	for _, tr := range log.Traces {
		for i := range tr.Events {
			n += countUnderlying(&tr.Events[i])
		}
	}
	return n
}

func countUnderlying(e *model.Event) int {
	if len(e.Underlying) == 0 {
		return 1
	}
	n := 0
	for i := range e.Underlying {
		n += countUnderlying(&e.Underlying[i])
	}
	return n
}

// SubstituteUnderlying replaces every abstracted event by the original
// events it stands for, recursively.
func SubstituteUnderlying(log *model.Log) *model.Log {
	out := &model.Log{Traces: make([]*model.Trace, len(log.Traces))}
	for i, tr := range log.Traces {
		nt := &model.Trace{CaseID: tr.CaseID}
		for j := range tr.Events {
			nt.Events = appendLeaves(nt.Events, &tr.Events[j])
		}
		out.Traces[i] = nt
	}
	return out
}

func appendLeaves(dst []model.Event, e *model.Event) []model.Event {
	if len(e.Underlying) == 0 {
		return append(dst, e.Clone())
	}
	for i := range e.Underlying {
		dst = appendLeaves(dst, &e.Underlying[i])
	}
	return dst
}

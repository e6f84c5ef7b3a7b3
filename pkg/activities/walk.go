package activities

import (
	"sort"

	"github.com/logflow/patternflow/pkg/eventclass"
)

// Walk visits the instances of a trace of length traceLen together with
// the unattached gaps between them, in trace order. Either callback may be
// nil.
func Walk(traceLen int, instances []Instance, onGap func(start, end int), onInstance func(in Instance)) {
	pos := 0
	for _, in := range instances {
		if in.Start > pos && onGap != nil {
			onGap(pos, in.Start)
		}
		if onInstance != nil {
			onInstance(in)
		}
		pos = in.End()
	}
	if pos < traceLen && onGap != nil {
		onGap(pos, traceLen)
	}
}

// AddUnattached runs extraction inside every unattached gap of at least
// minEvents events and merges the new instances into existing. forest is
// usually the original forest merged with activities discovered in the
// gaps. The result is aligned with log and sorted by start.
func AddUnattached(log [][]eventclass.Symbol, forest *Forest, existing [][]Instance, minEvents int, narrow bool) [][]Instance {
	if minEvents < 1 {
		minEvents = 1
	}
	x := NewExtractor(forest, narrow)

	out := make([][]Instance, len(log))
	for i, trace := range log {
		var current []Instance
		if i < len(existing) {
			current = existing[i]
		}
		merged := append([]Instance(nil), current...)

		Walk(len(trace), current, func(start, end int) {
			if end-start < minEvents {
				return
			}
			for _, in := range x.Trace(trace[start:end]) {
				in.Start += start
				merged = append(merged, in)
			}
		}, nil)

		sort.Slice(merged, func(a, b int) bool { return merged[a].Start < merged[b].Start })
		out[i] = merged
	}
	return out
}

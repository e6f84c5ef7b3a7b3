package activities

import (
	"sort"

	"github.com/logflow/patternflow/pkg/eventclass"
	"github.com/logflow/patternflow/pkg/patterns"
)

// AnchoredSpan is a span of one trace of a log.
type AnchoredSpan struct {
	TraceIndex int
	patterns.Span
}

// Symbols returns the slice of log covered by the span.
func (a AnchoredSpan) Symbols(log [][]eventclass.Symbol) []eventclass.Symbol {
	return log[a.TraceIndex][a.Start:a.End()]
}

// BuildRepeatSets keeps one span per distinct class-set signature, the
// first one met in trace order then span order. The result is sorted by
// (trace, start, length).
func BuildRepeatSets(log [][]eventclass.Symbol, found [][]patterns.Span) []AnchoredSpan {
	seen := make(map[uint64]struct{})
	var out []AnchoredSpan

	for i, spans := range found {
		for _, sp := range spans {
			set := NewClassSet(log[i][sp.Start:sp.End()])
			sig := set.Signature()
			if _, ok := seen[sig]; ok {
				continue
			}
			seen[sig] = struct{}{}
			out = append(out, AnchoredSpan{TraceIndex: i, Span: sp})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TraceIndex != b.TraceIndex {
			return a.TraceIndex < b.TraceIndex
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Length < b.Length
	})
	return out
}

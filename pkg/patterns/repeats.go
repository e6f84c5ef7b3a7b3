package patterns

import "github.com/logflow/patternflow/pkg/suffixtree"

func treeRepeats[T comparable](tree *suffixtree.Tree[T], kind Kind) []Span {
	switch kind {
	case MaximalRepeats:
		return tree.FindMaximalRepeats()
	case SuperMaximalRepeats:
		return tree.FindSuperMaximalRepeats()
	case NearSuperMaximalRepeats:
		return tree.FindNearSuperMaximalRepeats()
	default:
		panic("patterns: " + kind.String() + " is not a repeat kind")
	}
}

// FindTraceRepeats returns the repeats of one trace, sorted by (start, length).
func FindTraceRepeats[T comparable](trace []T, kind Kind) []Span {
	return treeRepeats(suffixtree.Build(suffixtree.NewSlice(trace)), kind)
}

// FindMergedRepeats builds one tree over every trace and maps each repeat
// back to the trace holding its leftmost occurrence. The result is aligned
// with log and each entry is sorted by (start, length).
func FindMergedRepeats[T comparable](log [][]T, kind Kind) [][]Span {
	out := make([][]Span, len(log))
	if len(log) == 0 {
		return out
	}

	slice := suffixtree.NewMultiSlice(log)
	for _, sp := range treeRepeats(suffixtree.Build(slice), kind) {
		trace, offset, ok := slice.Locate(sp.Start)
		if !ok {
			continue
		}
		out[trace] = append(out[trace], Span{Start: offset, Length: sp.Length})
	}
	return out
}

// FindRepeats runs repeat discovery sequentially under the given strategy.
func FindRepeats[T comparable](log [][]T, kind Kind, strategy Strategy) [][]Span {
	if strategy == MergedTrace {
		return FindMergedRepeats(log, kind)
	}
	out := make([][]Span, len(log))
	for i, trace := range log {
		out[i] = FindTraceRepeats(trace, kind)
	}
	return out
}

// Package patterns discovers tandem arrays and repeats in traces.
package patterns

import (
	"fmt"
	"strings"

	"github.com/logflow/patternflow/pkg/suffixtree"
)

// Span is a contiguous range of one trace.
type Span = suffixtree.Span

// TandemArray is a run of RepeatCount consecutive copies of the period
// starting at Span.Start. Span.Length is the period length.
type TandemArray struct {
	Span
	RepeatCount int
}

// End returns the exclusive end of the whole run.
func (a TandemArray) End() int {
	return a.Start + a.Length*a.RepeatCount
}

// Kind selects which family of patterns to discover.
type Kind uint8

const (
	PrimitiveTandemArrays Kind = iota
	MaximalTandemArrays
	MaximalRepeats
	SuperMaximalRepeats
	NearSuperMaximalRepeats
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case PrimitiveTandemArrays:
		return "primitive-tandem-arrays"
	case MaximalTandemArrays:
		return "maximal-tandem-arrays"
	case MaximalRepeats:
		return "maximal-repeats"
	case SuperMaximalRepeats:
		return "super-maximal-repeats"
	case NearSuperMaximalRepeats:
		return "near-super-maximal-repeats"
	default:
		return "unknown"
	}
}

// IsTandem reports whether the kind is a tandem-array kind.
func (k Kind) IsTandem() bool {
	return k == PrimitiveTandemArrays || k == MaximalTandemArrays
}

// ParseKind parses a kind name. Underscores and case are ignored.
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "primitive-tandem-arrays", "primitive-tandem", "pta":
		return PrimitiveTandemArrays, nil
	case "maximal-tandem-arrays", "maximal-tandem", "mta":
		return MaximalTandemArrays, nil
	case "maximal-repeats", "maximal", "mr":
		return MaximalRepeats, nil
	case "super-maximal-repeats", "super-maximal", "smr":
		return SuperMaximalRepeats, nil
	case "near-super-maximal-repeats", "near-super-maximal", "nsmr":
		return NearSuperMaximalRepeats, nil
	default:
		return 0, fmt.Errorf("patterns: unknown kind %q", s)
	}
}

// Strategy selects how traces are combined for repeat discovery.
type Strategy uint8

const (
	// PerTrace builds one tree per trace.
	PerTrace Strategy = iota
	// MergedTrace builds one tree over all traces.
	MergedTrace
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case PerTrace:
		return "per-trace"
	case MergedTrace:
		return "merged"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "per-trace", "single", "single-trace":
		return PerTrace, nil
	case "merged", "merged-trace", "all-traces":
		return MergedTrace, nil
	default:
		return 0, fmt.Errorf("patterns: unknown strategy %q", s)
	}
}

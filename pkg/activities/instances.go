package activities

import (
	"context"
	"sort"

	"github.com/logflow/patternflow/internal/pool"
	"github.com/logflow/patternflow/pkg/eventclass"
)

// Instance is one occurrence of an activity inside a trace.
type Instance struct {
	Node   NodeID
	Start  int
	Length int
}

// End returns the exclusive end of the instance.
func (in Instance) End() int {
	return in.Start + in.Length
}

// Extractor segments traces into activity instances. It only matches
// against forest roots and optionally narrows each closed instance to the
// most specific descendant consistent with the events it covered.
type Extractor struct {
	forest *Forest
	roots  []NodeID
	narrow bool
}

// NewExtractor prepares an extractor over forest.
func NewExtractor(forest *Forest, narrow bool) *Extractor {
	roots := append([]NodeID(nil), forest.Roots()...)
	sort.SliceStable(roots, func(i, j int) bool {
		return forest.Node(roots[i]).Classes.Len() < forest.Node(roots[j]).Classes.Len()
	})
	return &Extractor{forest: forest, roots: roots, narrow: narrow}
}

// window collects the classes seen by an open instance.
type window map[eventclass.Symbol]struct{}

func (w window) set() ClassSet {
	syms := make([]eventclass.Symbol, 0, len(w))
	for s := range w {
		syms = append(syms, s)
	}
	return NewClassSet(syms)
}

// Trace returns the instances of one trace, ordered and non-overlapping.
func (x *Extractor) Trace(trace []eventclass.Symbol) []Instance {
	var (
		out   []Instance
		open  bool
		node  NodeID
		start int
		seen  window
	)

	closeAt := func(end int) {
		id := node
		if x.narrow {
			id = x.forest.Narrow(node, seen.set())
		}
		out = append(out, Instance{Node: id, Start: start, Length: end - start})
		open = false
	}

	for i := 0; i < len(trace); {
		s := trace[i]
		if !open {
			if r, ok := x.rootContaining(s); ok {
				open, node, start = true, r, i
				seen = window{s: {}}
			}
			i++
			continue
		}

		if x.forest.Node(node).Classes.Contains(s) {
			seen[s] = struct{}{}
			i++
			continue
		}

		if r, ok := x.widen(node, seen, s); ok {
			node = r
			seen[s] = struct{}{}
			i++
			continue
		}

		// s is examined again as a possible start
		closeAt(i)
	}
	if open {
		closeAt(len(trace))
	}
	return out
}

func (x *Extractor) rootContaining(s eventclass.Symbol) (NodeID, bool) {
	for _, r := range x.roots {
		if x.forest.Node(r).Classes.Contains(s) {
			return r, true
		}
	}
	return 0, false
}

// widen looks for a root at least as large as current that covers the
// window extended by s.
func (x *Extractor) widen(current NodeID, seen window, s eventclass.Symbol) (NodeID, bool) {
	minSize := x.forest.Node(current).Classes.Len()
	for _, r := range x.roots {
		classes := x.forest.Node(r).Classes
		if classes.Len() < minSize || !classes.Contains(s) {
			continue
		}
		covers := true
		for w := range seen {
			if !classes.Contains(w) {
				covers = false
				break
			}
		}
		if covers {
			return r, true
		}
	}
	return 0, false
}

// Log extracts the instances of every trace on at most workers goroutines.
// The result is aligned with log.
func (x *Extractor) Log(ctx context.Context, log [][]eventclass.Symbol, workers int) ([][]Instance, error) {
	out := make([][]Instance, len(log))
	err := pool.ForEach(ctx, len(log), workers, func(_ context.Context, i int) error {
		out[i] = x.Trace(log[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractTrace segments a single trace.
func ExtractTrace(trace []eventclass.Symbol, forest *Forest, narrow bool) []Instance {
	return NewExtractor(forest, narrow).Trace(trace)
}

// ExtractInstances segments every trace of log using one worker per CPU.
func ExtractInstances(ctx context.Context, log [][]eventclass.Symbol, forest *Forest, narrow bool) ([][]Instance, error) {
	return NewExtractor(forest, narrow).Log(ctx, log, 0)
}

package suffixtree

import (
	"math"
	"sort"
)

// leftContext counts, for the leaves below a node, how many suffixes are
// preceded by each key.
type leftContext[T comparable] map[Key[T]]int

// merge folds the smaller context into the larger one and returns it.
func (c leftContext[T]) merge(other leftContext[T]) leftContext[T] {
	if len(c) < len(other) {
		c, other = other, c
	}
	for k, n := range other {
		c[k] += n
	}
	return c
}

// internalVisitor is called in post-order for every internal non-root
// node with its string depth, leftmost suffix start and left context.
type internalVisitor[T comparable] func(v, depth, minStart int, ctx leftContext[T])

func (t *Tree[T]) postOrder(visit internalVisitor[T]) {
	t.collect(0, 0, visit)
}

func (t *Tree[T]) collect(v, depth int, visit internalVisitor[T]) (int, leftContext[T]) {
	depth += t.nodes[v].length()
	if t.isLeaf(v) {
		start := len(t.slice.keys) - depth
		return start, leftContext[T]{t.slice.preceding(start): 1}
	}

	minStart := math.MaxInt
	var ctx leftContext[T]
	for _, c := range t.nodes[v].children {
		start, child := t.collect(c, depth, visit)
		if start < minStart {
			minStart = start
		}
		if ctx == nil {
			ctx = child
		} else {
			ctx = ctx.merge(child)
		}
	}

	if v != 0 {
		visit(v, depth, minStart, ctx)
	}
	return minStart, ctx
}

// FindMaximalRepeats returns one span per maximal repeat, located at its
// leftmost occurrence and sorted by (start, length). A node is a maximal
// repeat when its occurrences are preceded by at least two distinct keys.
func (t *Tree[T]) FindMaximalRepeats() []Span {
	var spans []Span
	t.postOrder(func(_, depth, minStart int, ctx leftContext[T]) {
		if len(ctx) >= 2 {
			spans = append(spans, Span{Start: minStart, Length: depth})
		}
	})
	sortSpans(spans)
	return spans
}

// FindNearSuperMaximalRepeats returns the maximal repeats having at least
// one occurrence that lies inside no occurrence of another maximal repeat.
// Such a node has a leaf child whose left key is unique within the node's
// subtree.
func (t *Tree[T]) FindNearSuperMaximalRepeats() []Span {
	var spans []Span
	t.postOrder(func(v, depth, minStart int, ctx leftContext[T]) {
		if len(ctx) < 2 {
			return
		}
		for _, c := range t.nodes[v].children {
			if !t.isLeaf(c) {
				continue
			}
			start := t.nodes[c].left - depth
			if ctx[t.slice.preceding(start)] == 1 {
				spans = append(spans, Span{Start: minStart, Length: depth})
				return
			}
		}
	})
	sortSpans(spans)
	return spans
}

// FindSuperMaximalRepeats returns the maximal repeats that are not a
// substring of any other maximal repeat.
func (t *Tree[T]) FindSuperMaximalRepeats() []Span {
	maximal := t.FindMaximalRepeats()
	if len(maximal) == 0 {
		return nil
	}

	words := make([][]T, len(maximal))
	for i, sp := range maximal {
		words[i] = t.slice.Sub(sp.Start, sp.Length)
	}
	inner := Build(NewMultiSlice(words))

	var spans []Span
	for i, sp := range maximal {
		if occ, _ := inner.FindPatterns(words[i]); len(occ) == 1 {
			spans = append(spans, sp)
		}
	}
	return spans
}

func sortSpans(spans []Span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Length < spans[j].Length
	})
}

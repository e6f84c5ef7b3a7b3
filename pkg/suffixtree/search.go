package suffixtree

import "sort"

// FindPatterns returns every occurrence of query, sorted by start. It
// reports false when query is empty or does not occur.
func (t *Tree[T]) FindPatterns(query []T) ([]Span, bool) {
	if len(query) == 0 {
		return nil, false
	}

	keys := t.slice.keys
	v, i, depth := 0, 0, 0
	for i < len(query) {
		c, ok := t.nodes[v].children[Key[T]{Sym: query[i]}]
		if !ok {
			return nil, false
		}
		n := &t.nodes[c]
		for j := n.left; j < n.right && i < len(query); j++ {
			if keys[j] != (Key[T]{Sym: query[i]}) {
				return nil, false
			}
			i++
		}
		depth += n.length()
		v = c
	}

	starts := t.leafStarts(v, depth)
	sort.Ints(starts)

	spans := make([]Span, len(starts))
	for k, s := range starts {
		spans[k] = Span{Start: s, Length: len(query)}
	}
	return spans, true
}

// Contains reports whether query occurs in the slice.
func (t *Tree[T]) Contains(query []T) bool {
	_, ok := t.FindPatterns(query)
	return ok
}

// Package suffixtree implements a generalized suffix tree over one or more
// words and the repeat queries used by pattern discovery.
package suffixtree

import "sort"

// Span is a contiguous range of a slice.
type Span struct {
	Start  int
	Length int
}

// End returns the exclusive end of the span.
func (s Span) End() int {
	return s.Start + s.Length
}

// Key is one position of a Slice. Term is zero for a regular element and
// k+1 for the terminator that closes word k. Terminators never compare
// equal to each other or to any element.
type Key[T comparable] struct {
	Sym  T
	Term int
}

// IsTerminator reports whether the key closes a word.
func (k Key[T]) IsTerminator() bool {
	return k.Term != 0
}

// startSentinel precedes the first position of the slice.
const startSentinel = -1

// Slice is an indexable view over independent words laid out back to back,
// each followed by its own unique terminator.
type Slice[T comparable] struct {
	words  [][]T
	starts []int
	keys   []Key[T]
}

// NewSlice creates a slice over a single word.
func NewSlice[T comparable](word []T) *Slice[T] {
	return NewMultiSlice([][]T{word})
}

// NewMultiSlice creates a slice over several words.
func NewMultiSlice[T comparable](words [][]T) *Slice[T] {
	s := &Slice[T]{
		words:  words,
		starts: make([]int, len(words)),
	}

	n := 0
	for k, w := range words {
		s.starts[k] = n
		n += len(w) + 1
	}

	s.keys = make([]Key[T], 0, n)
	for k, w := range words {
		for _, sym := range w {
			s.keys = append(s.keys, Key[T]{Sym: sym})
		}
		s.keys = append(s.keys, Key[T]{Term: k + 1})
	}
	return s
}

// Len returns the number of positions, terminators included.
func (s *Slice[T]) Len() int {
	return len(s.keys)
}

// Key returns the key at position i.
func (s *Slice[T]) Key(i int) Key[T] {
	return s.keys[i]
}

// Get returns the element at position i, or false when i is a terminator.
func (s *Slice[T]) Get(i int) (T, bool) {
	k := s.keys[i]
	return k.Sym, k.Term == 0
}

// WordCount returns the number of words.
func (s *Slice[T]) WordCount() int {
	return len(s.words)
}

// Word returns word k.
func (s *Slice[T]) Word(k int) []T {
	return s.words[k]
}

// WordStart returns the global position of the first element of word k.
func (s *Slice[T]) WordStart(k int) int {
	return s.starts[k]
}

// Locate maps a global position to its word and offset. ok is false when
// the position holds a terminator.
func (s *Slice[T]) Locate(i int) (word, offset int, ok bool) {
	if i < 0 || i >= len(s.keys) {
		panic("suffixtree: position out of range")
	}
	word = sort.SearchInts(s.starts, i+1) - 1
	offset = i - s.starts[word]
	return word, offset, offset < len(s.words[word])
}

// Sub returns the elements of [start, start+length). The range must not
// contain a terminator.
func (s *Slice[T]) Sub(start, length int) []T {
	out := make([]T, length)
	for i := range out {
		k := s.keys[start+i]
		if k.Term != 0 {
			panic("suffixtree: range crosses a word boundary")
		}
		out[i] = k.Sym
	}
	return out
}

// preceding returns the key left of position i. Position zero gets a
// sentinel; every other word start is preceded by the previous word's
// terminator, so each word start has a distinct left context.
func (s *Slice[T]) preceding(i int) Key[T] {
	if i == 0 {
		return Key[T]{Term: startSentinel}
	}
	return s.keys[i-1]
}

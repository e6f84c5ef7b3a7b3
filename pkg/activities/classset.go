// Package activities builds the activity hierarchy from discovered repeats
// and segments traces into activity instances.
package activities

import (
	"sort"

	"github.com/logflow/patternflow/pkg/eventclass"
)

// ClassSet is an immutable, sorted set of event classes.
type ClassSet struct {
	syms []eventclass.Symbol
}

// NewClassSet returns the set of distinct symbols in syms.
func NewClassSet(syms []eventclass.Symbol) ClassSet {
	if len(syms) == 0 {
		return ClassSet{}
	}
	sorted := append([]eventclass.Symbol(nil), syms...)
	eventclass.Sort(sorted)

	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[n-1] {
			sorted[n] = sorted[i]
			n++
		}
	}
	return ClassSet{syms: sorted[:n]}
}

// Len returns the number of classes.
func (c ClassSet) Len() int {
	return len(c.syms)
}

// Symbols returns a copy of the classes in ascending order.
func (c ClassSet) Symbols() []eventclass.Symbol {
	return append([]eventclass.Symbol(nil), c.syms...)
}

// Contains reports whether s is in the set.
func (c ClassSet) Contains(s eventclass.Symbol) bool {
	i := sort.Search(len(c.syms), func(i int) bool { return c.syms[i] >= s })
	return i < len(c.syms) && c.syms[i] == s
}

// ContainsAll reports whether other is a subset of c.
func (c ClassSet) ContainsAll(other ClassSet) bool {
	if other.Len() > c.Len() {
		return false
	}
	i := 0
	for _, s := range other.syms {
		for i < len(c.syms) && c.syms[i] < s {
			i++
		}
		if i == len(c.syms) || c.syms[i] != s {
			return false
		}
		i++
	}
	return true
}

// Equal reports whether both sets hold the same classes.
func (c ClassSet) Equal(other ClassSet) bool {
	return c.Len() == other.Len() && c.ContainsAll(other)
}

const (
	signatureBase    = 31
	signatureModulus = 1_000_000_007
)

// Signature returns the polynomial hash of the sorted classes. Products
// wrap at 64 bits before each reduction.
func (c ClassSet) Signature() uint64 {
	hash, pow := uint64(1), uint64(1)
	for _, s := range c.syms {
		hash = (hash + (uint64(s)+1)*pow) % signatureModulus
		pow = pow * signatureBase % signatureModulus
	}
	return hash
}

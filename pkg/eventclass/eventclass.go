// Package eventclass maps events to opaque class symbols.
package eventclass

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/logflow/patternflow/internal/model"
)

// Symbol identifies the class of one event occurrence. Symbols are
// compared for equality; their order is only used to canonicalise sets.
type Symbol uint64

// Extractor derives the class of an event.
type Extractor func(e *model.Event) Symbol

// Hash returns the symbol of a class name.
func Hash(name string) Symbol {
	return Symbol(xxhash.Sum64String(name))
}

// HashBytes is Hash for a byte slice.
func HashBytes(name []byte) Symbol {
	return Symbol(xxhash.Sum64(name))
}

// ByActivity classifies events by their activity name.
func ByActivity(e *model.Event) Symbol {
	return HashBytes(e.Activity)
}

// ByActivityAndResource classifies events by activity and resource, so the
// same activity performed by different resources forms distinct classes.
func ByActivityAndResource(e *model.Event) Symbol {
	d := xxhash.New()
	_, _ = d.Write(e.Activity)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(e.Resource)
	return Symbol(d.Sum64())
}

// ParseExtractor returns the extractor registered under name.
func ParseExtractor(name string) (Extractor, bool) {
	switch name {
	case "", "activity", "name":
		return ByActivity, true
	case "activity+resource", "activity-resource":
		return ByActivityAndResource, true
	default:
		return nil, false
	}
}

// HashLog maps every event of log to its class symbol.
func HashLog(log *model.Log, ex Extractor) [][]Symbol {
	if ex == nil {
		ex = ByActivity
	}
	out := make([][]Symbol, len(log.Traces))
	for i, tr := range log.Traces {
		syms := make([]Symbol, len(tr.Events))
		for j := range tr.Events {
			syms[j] = ex(&tr.Events[j])
		}
		out[i] = syms
	}
	return out
}

// HashNames maps traces of class names to symbols.
func HashNames(traces [][]string) [][]Symbol {
	out := make([][]Symbol, len(traces))
	for i, tr := range traces {
		syms := make([]Symbol, len(tr))
		for j, name := range tr {
			syms[j] = Hash(name)
		}
		out[i] = syms
	}
	return out
}

// Sort sorts symbols in ascending order.
func Sort(syms []Symbol) {
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
}

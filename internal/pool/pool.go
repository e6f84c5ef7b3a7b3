// Package pool provides event reuse and timestamp parsing for the log
// readers and a bounded parallel map for per-trace work.
package pool

import (
	"sync"

	"github.com/logflow/patternflow/internal/model"
)

// DefaultBufferSize is the default size for read buffers.
const DefaultBufferSize = 64 * 1024

// EventPool manages reusable Event structs. Events handed to a consumer
// are owned by it; only events that were never delivered go back.
type EventPool struct {
	pool sync.Pool
}

// NewEventPool creates a new event pool.
func NewEventPool() *EventPool {
	ep := &EventPool{}
	ep.pool.New = func() any {
		return &model.Event{
			CaseID:   make([]byte, 0, 32),
			Activity: make([]byte, 0, 64),
		}
	}
	return ep
}

// Get retrieves an event from the pool.
func (p *EventPool) Get() *model.Event {
	return p.pool.Get().(*model.Event)
}

// Put resets an event and returns it to the pool.
func (p *EventPool) Put(e *model.Event) {
	e.Reset()
	p.pool.Put(e)
}

// Package model defines the event log structures shared by patternflow.
package model

// Event is a single process mining event.
// Timestamps are stored as int64 nanoseconds since Unix epoch.
type Event struct {
	// CaseID identifies the process instance (trace).
	CaseID []byte

	// Activity is the event name/activity label.
	Activity []byte

	// Timestamp in nanoseconds since Unix epoch.
	Timestamp int64

	// Resource is the actor/resource performing the activity.
	Resource []byte

	// Attributes holds additional key-value pairs.
	Attributes []Attribute

	// Underlying holds the events an abstracted event stands for.
	// It is empty for events read from a log.
	Underlying []Event
}

// Attribute represents a key-value pair for event metadata.
type Attribute struct {
	Key   []byte
	Value []byte
	Type  AttrType
}

// AttrType indicates the semantic type of an attribute value.
type AttrType uint8

const (
	AttrTypeString AttrType = iota
	AttrTypeInt
	AttrTypeFloat
	AttrTypeBool
	AttrTypeTimestamp
)

// Name returns the activity as a string.
func (e *Event) Name() string {
	return string(e.Activity)
}

// Reset clears the event for reuse from a pool.
func (e *Event) Reset() {
	e.CaseID = e.CaseID[:0]
	e.Activity = e.Activity[:0]
	e.Timestamp = 0
	e.Resource = e.Resource[:0]
	e.Attributes = e.Attributes[:0]
	e.Underlying = nil
}

// Clone returns a deep copy that shares no memory with e.
func (e *Event) Clone() Event {
	c := Event{
		CaseID:    append([]byte(nil), e.CaseID...),
		Activity:  append([]byte(nil), e.Activity...),
		Timestamp: e.Timestamp,
		Resource:  append([]byte(nil), e.Resource...),
	}
	if len(e.Attributes) > 0 {
		c.Attributes = make([]Attribute, len(e.Attributes))
		for i, a := range e.Attributes {
			c.Attributes[i] = Attribute{
				Key:   append([]byte(nil), a.Key...),
				Value: append([]byte(nil), a.Value...),
				Type:  a.Type,
			}
		}
	}
	if len(e.Underlying) > 0 {
		c.Underlying = make([]Event, len(e.Underlying))
		for i := range e.Underlying {
			c.Underlying[i] = e.Underlying[i].Clone()
		}
	}
	return c
}

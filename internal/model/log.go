package model

import "strconv"

// Trace is the ordered events of one case.
type Trace struct {
	CaseID string
	Events []Event
}

// Log is an ordered collection of traces.
type Log struct {
	Traces []*Trace
}

// EventCount returns the number of events over all traces.
func (l *Log) EventCount() int {
	n := 0
	for _, tr := range l.Traces {
		n += len(tr.Events)
	}
	return n
}

// NewLogFromNames builds a log whose events carry only activity names.
// Case ids are the trace indices.
func NewLogFromNames(traces [][]string) *Log {
	log := &Log{Traces: make([]*Trace, len(traces))}
	for i, names := range traces {
		tr := &Trace{CaseID: strconv.Itoa(i), Events: make([]Event, len(names))}
		for j, name := range names {
			tr.Events[j] = Event{
				CaseID:   []byte(tr.CaseID),
				Activity: []byte(name),
			}
		}
		log.Traces[i] = tr
	}
	return log
}

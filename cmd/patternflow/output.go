package main

import (
	"encoding/json"
	"io"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
	"github.com/logflow/patternflow/pkg/discovery"
	"github.com/logflow/patternflow/pkg/report"
)

type jsonActivity struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	Classes   int     `json:"classes"`
	Children  []int   `json:"children,omitempty"`
	Instances int     `json:"instances"`
	Coverage  float64 `json:"trace_coverage"`
}

type jsonInstance struct {
	Activity int    `json:"activity"`
	Name     string `json:"name"`
	Start    int    `json:"start"`
	Length   int    `json:"length"`
}

type jsonTrace struct {
	CaseID    string         `json:"case_id"`
	Events    int            `json:"events"`
	Instances []jsonInstance `json:"instances"`
}

type jsonResult struct {
	RunID         string         `json:"run_id"`
	Traces        int            `json:"traces"`
	Events        int            `json:"events"`
	EventCoverage float64        `json:"event_coverage"`
	DurationMS    int64          `json:"duration_ms"`
	Roots         []int          `json:"roots"`
	Activities    []jsonActivity `json:"activities"`
	Segmentation  []jsonTrace    `json:"segmentation"`
}

// writeJSON prints the forest and per-trace instances of res.
func writeJSON(w io.Writer, log *model.Log, res *discovery.Result) error {
	rep := report.Build(res)
	doc := jsonResult{
		RunID:         res.RunID.String(),
		Traces:        rep.Traces,
		Events:        rep.Events,
		EventCoverage: rep.EventCoverage(),
		DurationMS:    res.Duration.Milliseconds(),
		Roots:         []int{},
		Activities:    make([]jsonActivity, 0, res.Forest.Len()),
		Segmentation:  make([]jsonTrace, 0, len(log.Traces)),
	}

	for _, id := range res.Forest.Roots() {
		doc.Roots = append(doc.Roots, int(id))
	}
	for i := 0; i < res.Forest.Len(); i++ {
		id := activities.NodeID(i)
		n := res.Forest.Node(id)
		a := jsonActivity{
			ID:       i,
			Name:     n.Name,
			Level:    n.Level,
			Classes:  n.Classes.Len(),
			Coverage: rep.TraceCoverage(id),
		}
		for _, c := range n.Children {
			a.Children = append(a.Children, int(c))
		}
		if st, ok := rep.Activity(id); ok {
			a.Instances = st.Instances
		}
		doc.Activities = append(doc.Activities, a)
	}

	for t, tr := range log.Traces {
		jt := jsonTrace{CaseID: tr.CaseID, Events: len(tr.Events), Instances: []jsonInstance{}}
		for _, in := range res.Instances[t] {
			jt.Instances = append(jt.Instances, jsonInstance{
				Activity: int(in.Node),
				Name:     res.Forest.Node(in.Node).Name,
				Start:    in.Start,
				Length:   in.Length,
			})
		}
		doc.Segmentation = append(doc.Segmentation, jt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

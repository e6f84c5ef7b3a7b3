// Package report summarizes a discovery result per activity. Trace
// membership is kept as roaring bitmaps of trace indices so coverage of
// subtrees and co-occurrence reduce to bitmap unions and intersections.
package report

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/logflow/patternflow/pkg/activities"
	"github.com/logflow/patternflow/pkg/discovery"
)

// ActivityStats describes one forest node.
type ActivityStats struct {
	Node  activities.NodeID
	Name  string
	Level int
	Depth int

	// Instances counts instances labelled with this node itself.
	Instances int
	// Events counts the events those instances cover.
	Events int

	// Traces holds the traces with an instance of this node.
	Traces *roaring.Bitmap
	// SubtreeTraces adds the traces of every descendant.
	SubtreeTraces *roaring.Bitmap
}

// MeanLength returns the mean instance length, zero without instances.
func (s *ActivityStats) MeanLength() float64 {
	if s.Instances == 0 {
		return 0
	}
	return float64(s.Events) / float64(s.Instances)
}

// Report is the per-activity summary of one discovery pass.
type Report struct {
	RunID  string
	Traces int
	Events int

	// Covered counts events inside some instance.
	Covered int

	// Activities lists nodes in forest depth-first order.
	Activities []ActivityStats

	index map[activities.NodeID]int
}

// Build computes the report for res.
func Build(res *discovery.Result) *Report {
	r := &Report{
		RunID:  res.RunID.String(),
		Traces: len(res.Hashed),
		index:  make(map[activities.NodeID]int, res.Forest.Len()),
	}
	for _, trace := range res.Hashed {
		r.Events += len(trace)
	}

	res.Forest.Visit(func(id activities.NodeID, depth int) {
		if _, seen := r.index[id]; seen {
			return
		}
		node := res.Forest.Node(id)
		r.index[id] = len(r.Activities)
		r.Activities = append(r.Activities, ActivityStats{
			Node:          id,
			Name:          node.Name,
			Level:         node.Level,
			Depth:         depth,
			Traces:        roaring.New(),
			SubtreeTraces: roaring.New(),
		})
	})

	for ti, trace := range res.Instances {
		for _, in := range trace {
			st := &r.Activities[r.index[in.Node]]
			st.Instances++
			st.Events += in.Length
			st.Traces.Add(uint32(ti))
			r.Covered += in.Length
		}
	}

	for _, root := range res.Forest.Roots() {
		r.fillSubtree(res.Forest, root)
	}
	return r
}

func (r *Report) fillSubtree(forest *activities.Forest, id activities.NodeID) *roaring.Bitmap {
	st := &r.Activities[r.index[id]]
	parts := []*roaring.Bitmap{st.Traces}
	for _, child := range forest.Node(id).Children {
		parts = append(parts, r.fillSubtree(forest, child))
	}
	st.SubtreeTraces = roaring.FastOr(parts...)
	return st.SubtreeTraces
}

// Activity returns the stats of node id.
func (r *Report) Activity(id activities.NodeID) (*ActivityStats, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return &r.Activities[i], true
}

// EventCoverage returns the fraction of events inside instances.
func (r *Report) EventCoverage() float64 {
	if r.Events == 0 {
		return 0
	}
	return float64(r.Covered) / float64(r.Events)
}

// TraceCoverage returns the fraction of traces where the subtree of id
// occurs.
func (r *Report) TraceCoverage(id activities.NodeID) float64 {
	st, ok := r.Activity(id)
	if !ok || r.Traces == 0 {
		return 0
	}
	return float64(st.SubtreeTraces.GetCardinality()) / float64(r.Traces)
}

// CoOccurring returns the traces containing the subtrees of both a and b.
func (r *Report) CoOccurring(a, b activities.NodeID) *roaring.Bitmap {
	sa, okA := r.Activity(a)
	sb, okB := r.Activity(b)
	if !okA || !okB {
		return roaring.New()
	}
	return roaring.And(sa.SubtreeTraces, sb.SubtreeTraces)
}

// Uncovered returns the traces in which no activity occurs.
func (r *Report) Uncovered() *roaring.Bitmap {
	all := roaring.New()
	if r.Traces > 0 {
		all.AddRange(0, uint64(r.Traces))
	}
	for i := range r.Activities {
		all.AndNot(r.Activities[i].Traces)
	}
	return all
}

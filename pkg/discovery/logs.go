package discovery

import (
	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
)

// ActivityLogs groups the instances of activities at the given level by
// activity name. Each instance becomes one trace of copied events.
func ActivityLogs(log *model.Log, forest *activities.Forest, instances [][]activities.Instance, level int) map[string]*model.Log {
	out := make(map[string]*model.Log)
	for i, trace := range instances {
		tr := log.Traces[i]
		for _, in := range trace {
			node := forest.Node(in.Node)
			if node.Level != level {
				continue
			}

			nt := &model.Trace{CaseID: tr.CaseID, Events: make([]model.Event, 0, in.Length)}
			for j := in.Start; j < in.End(); j++ {
				nt.Events = append(nt.Events, tr.Events[j].Clone())
			}

			sub, ok := out[node.Name]
			if !ok {
				sub = &model.Log{}
				out[node.Name] = sub
			}
			sub.Traces = append(sub.Traces, nt)
		}
	}
	return out
}

// UnattachedLog keeps, per trace, only the events covered by no instance.
// Traces stay aligned with log even when they end up empty.
func UnattachedLog(log *model.Log, instances [][]activities.Instance) *model.Log {
	out := &model.Log{Traces: make([]*model.Trace, len(log.Traces))}
	for i, tr := range log.Traces {
		var trace []activities.Instance
		if i < len(instances) {
			trace = instances[i]
		}

		nt := &model.Trace{CaseID: tr.CaseID}
		activities.Walk(len(tr.Events), trace, func(start, end int) {
			for j := start; j < end; j++ {
				nt.Events = append(nt.Events, tr.Events[j].Clone())
			}
		}, nil)
		out.Traces[i] = nt
	}
	return out
}

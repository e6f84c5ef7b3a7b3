package discovery

import (
	"strings"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/activities"
)

// NameByEvents names an activity by concatenating the event names covered
// by its representative span in log.
func NameByEvents(log *model.Log) activities.Namer {
	return func(span activities.AnchoredSpan) string {
		events := log.Traces[span.TraceIndex].Events[span.Start:span.End()]
		var sb strings.Builder
		for i := range events {
			sb.Write(events[i].Activity)
		}
		return sb.String()
	}
}

// NameBySeparatedEvents is NameByEvents with sep between event names.
func NameBySeparatedEvents(log *model.Log, sep string) activities.Namer {
	return func(span activities.AnchoredSpan) string {
		events := log.Traces[span.TraceIndex].Events[span.Start:span.End()]
		names := make([]string, len(events))
		for i := range events {
			names[i] = events[i].Name()
		}
		return strings.Join(names, sep)
	}
}

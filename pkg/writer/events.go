package writer

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"

	"github.com/logflow/patternflow/internal/model"
)

// eventSchema returns the Arrow schema for event rows. underlying is the
// number of events an abstracted event stands for, zero for raw events.
func eventSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "case_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "position", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "activity", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "timestamp", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
		{Name: "resource", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "underlying", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	}, nil)
}

// EventWriter writes the events of a log, one row per event.
type EventWriter struct {
	*recordWriter
}

// NewEventWriter creates a Parquet writer for events.
func NewEventWriter(output io.Writer, cfg Config) (*EventWriter, error) {
	rw, err := newRecordWriter(output, eventSchema(), cfg)
	if err != nil {
		return nil, err
	}
	return &EventWriter{rw}, nil
}

// WriteLog appends every event of log in trace order.
func (w *EventWriter) WriteLog(ctx context.Context, log *model.Log) error {
	for _, tr := range log.Traces {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range tr.Events {
			if err := w.WriteEvent(tr.CaseID, i, &tr.Events[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvent appends one event at position pos of case caseID.
func (w *EventWriter) WriteEvent(caseID string, pos int, e *model.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.builder
	b.Field(0).(*array.StringBuilder).Append(caseID)
	b.Field(1).(*array.Int32Builder).Append(int32(pos))
	b.Field(2).(*array.StringBuilder).Append(string(e.Activity))
	b.Field(3).(*array.Int64Builder).Append(e.Timestamp)
	appendOptionalString(b.Field(4).(*array.StringBuilder), e.Resource)
	b.Field(5).(*array.Int32Builder).Append(int32(len(e.Underlying)))
	return w.endRow()
}

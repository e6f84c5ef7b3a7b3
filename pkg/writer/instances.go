package writer

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/discovery"
)

// instanceSchema returns the Arrow schema for activity instance rows.
// Times are the timestamps of the first and last covered events.
func instanceSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "run_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "case_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "trace", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "activity", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "level", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "start", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "length", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
		{Name: "start_time", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "end_time", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)
}

// InstanceWriter writes activity instances, one row per instance.
type InstanceWriter struct {
	*recordWriter
}

// NewInstanceWriter creates a Parquet writer for activity instances.
func NewInstanceWriter(output io.Writer, cfg Config) (*InstanceWriter, error) {
	rw, err := newRecordWriter(output, instanceSchema(), cfg)
	if err != nil {
		return nil, err
	}
	return &InstanceWriter{rw}, nil
}

// WriteResult appends every instance of res. log must be the log res was
// discovered on.
func (w *InstanceWriter) WriteResult(ctx context.Context, log *model.Log, res *discovery.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := res.RunID.String()
	b := w.builder
	for ti, trace := range res.Instances {
		if err := ctx.Err(); err != nil {
			return err
		}
		tr := log.Traces[ti]
		for _, in := range trace {
			node := res.Forest.Node(in.Node)
			b.Field(0).(*array.StringBuilder).Append(runID)
			b.Field(1).(*array.StringBuilder).Append(tr.CaseID)
			b.Field(2).(*array.Int32Builder).Append(int32(ti))
			b.Field(3).(*array.StringBuilder).Append(node.Name)
			b.Field(4).(*array.Int32Builder).Append(int32(node.Level))
			b.Field(5).(*array.Int32Builder).Append(int32(in.Start))
			b.Field(6).(*array.Int32Builder).Append(int32(in.Length))

			first, last := tr.Events[in.Start].Timestamp, tr.Events[in.End()-1].Timestamp
			appendOptionalTime(b.Field(7).(*array.Int64Builder), first)
			appendOptionalTime(b.Field(8).(*array.Int64Builder), last)

			if err := w.endRow(); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendOptionalTime(b *array.Int64Builder, ts int64) {
	if ts == 0 {
		b.AppendNull()
		return
	}
	b.Append(ts)
}

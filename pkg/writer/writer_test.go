package writer

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/pkg/discovery"
)

func charLog(traces ...string) *model.Log {
	names := make([][]string, len(traces))
	for i, tr := range traces {
		for _, c := range tr {
			names[i] = append(names[i], string(c))
		}
	}
	return model.NewLogFromNames(names)
}

func readTable(t *testing.T, data []byte) arrow.Table {
	t.Helper()
	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewParquetReader failed: %v", err)
	}
	t.Cleanup(func() { rdr.Close() })

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("NewFileReader failed: %v", err)
	}
	table, err := fr.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	t.Cleanup(table.Release)
	return table
}

func stringColumn(table arrow.Table, i int) []string {
	var out []string
	for _, chunk := range table.Column(i).Data().Chunks() {
		arr := chunk.(*array.String)
		for j := 0; j < arr.Len(); j++ {
			out = append(out, arr.Value(j))
		}
	}
	return out
}

func int32Column(table arrow.Table, i int) []int32 {
	var out []int32
	for _, chunk := range table.Column(i).Data().Chunks() {
		out = append(out, chunk.(*array.Int32).Int32Values()...)
	}
	return out
}

func TestInstanceWriter(t *testing.T) {
	log := charLog("gdabcabcabcabcafica")
	opts := discovery.DefaultOptions()
	opts.MaxTandemPeriod = 20
	res, err := discovery.Discover(context.Background(), log, opts)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.BatchSize = 1
	w, err := NewInstanceWriter(&buf, cfg)
	if err != nil {
		t.Fatalf("NewInstanceWriter failed: %v", err)
	}
	if err := w.WriteResult(context.Background(), log, res); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.RowsWritten() != 2 {
		t.Errorf("Expected 2 rows, got %d", w.RowsWritten())
	}

	table := readTable(t, buf.Bytes())
	if table.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.NumRows())
	}
	if got := stringColumn(table, 3); got[0] != "abc" || got[1] != "abc" {
		t.Errorf("Expected abc activities, got %v", got)
	}
	starts, lengths := int32Column(table, 5), int32Column(table, 6)
	if starts[0] != 2 || lengths[0] != 13 || starts[1] != 17 || lengths[1] != 2 {
		t.Errorf("Unexpected spans starts=%v lengths=%v", starts, lengths)
	}
	if got := stringColumn(table, 0); got[0] != res.RunID.String() {
		t.Errorf("Expected run id %s, got %s", res.RunID, got[0])
	}
	// the log carries no timestamps
	if table.Column(7).NullN() != 2 {
		t.Errorf("Expected null start times, got %d nulls", table.Column(7).NullN())
	}
}

func TestEventWriter_Relogged(t *testing.T) {
	log := charLog("gdabcabcabcabcafica")
	opts := discovery.DefaultOptions()
	opts.MaxTandemPeriod = 20
	res, err := discovery.Discover(context.Background(), log, opts)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	relogged := discovery.Relog(log, res.Forest, res.Instances, discovery.RelogOptions{Undefined: discovery.DontInsert})

	var buf bytes.Buffer
	w, err := NewEventWriter(&buf, DefaultConfig())
	if err != nil {
		t.Fatalf("NewEventWriter failed: %v", err)
	}
	if err := w.WriteLog(context.Background(), relogged); err != nil {
		t.Fatalf("WriteLog failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	table := readTable(t, buf.Bytes())
	if got := stringColumn(table, 2); len(got) != 2 || got[0] != "abc" {
		t.Fatalf("Expected two abc events, got %v", got)
	}
	if got := int32Column(table, 5); got[0] != 13 || got[1] != 2 {
		t.Errorf("Expected underlying counts [13 2], got %v", got)
	}
	if got := int32Column(table, 1); got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected positions [0 1], got %v", got)
	}
	if table.Column(4).NullN() != 2 {
		t.Errorf("Expected null resources")
	}
}

func TestEventWriter_CloseTwice(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewEventWriter(&buf, Config{Compression: CompressionZstd})
	if err != nil {
		t.Fatalf("NewEventWriter failed: %v", err)
	}
	if err := w.WriteLog(context.Background(), charLog("ab")); err != nil {
		t.Fatalf("WriteLog failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if table := readTable(t, buf.Bytes()); table.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", table.NumRows())
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionSnappy, CompressionGzip, CompressionZstd} {
		if got := ParseCompression(c.String()); got != c {
			t.Errorf("ParseCompression(%q): expected %s, got %s", c.String(), c, got)
		}
	}
}

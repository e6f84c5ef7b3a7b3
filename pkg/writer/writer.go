// Package writer exports event logs and activity instances as Parquet.
package writer

import (
	"fmt"
	"io"
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
)

// Config holds writer configuration.
type Config struct {
	// BatchSize is the number of rows per record batch.
	BatchSize int

	// Compression type for Parquet output.
	Compression CompressionType
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

func (c CompressionType) codec() compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Uncompressed
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:   8192,
		Compression: CompressionSnappy,
	}
}

// recordWriter batches rows in a RecordBuilder and writes one record
// batch per BatchSize rows.
type recordWriter struct {
	cfg     Config
	schema  *arrow.Schema
	builder *array.RecordBuilder
	fw      *pqarrow.FileWriter

	mu      sync.Mutex
	rows    int
	written int64
	closed  bool
}

func newRecordWriter(output io.Writer, schema *arrow.Schema, cfg Config) (*recordWriter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(cfg.Compression.codec()),
		parquet.WithDictionaryDefault(true),
		parquet.WithDataPageSize(1024*1024),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	fw, err := pqarrow.NewFileWriter(schema, writerOnly{output}, writerProps, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	b.Reserve(cfg.BatchSize)

	return &recordWriter{
		cfg:     cfg,
		schema:  schema,
		builder: b,
		fw:      fw,
	}, nil
}

// endRow must be called with mu held after every appended row.
func (w *recordWriter) endRow() error {
	w.rows++
	if w.rows >= w.cfg.BatchSize {
		return w.flushBatch()
	}
	return nil
}

func (w *recordWriter) flushBatch() error {
	if w.rows == 0 {
		return nil
	}

	rec := w.builder.NewRecord()
	defer rec.Release()

	if err := w.fw.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	w.written += int64(w.rows)
	w.rows = 0
	return nil
}

// Close flushes, writes the Parquet footer and releases builders. It does
// not close the underlying output.
func (w *recordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.flushBatch(); err != nil {
		return err
	}
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	w.builder.Release()
	w.closed = true
	return nil
}

// RowsWritten returns the number of rows written so far.
func (w *recordWriter) RowsWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// writerOnly hides Close so that closing the Parquet writer leaves the
// output open for its owner.
type writerOnly struct {
	io.Writer
}

func appendOptionalString(b *array.StringBuilder, v []byte) {
	if len(v) == 0 {
		b.AppendNull()
		return
	}
	b.Append(string(v))
}

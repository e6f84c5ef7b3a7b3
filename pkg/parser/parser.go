// Package parser reads event logs (XES, CSV, XLSX) into model events and
// groups them into traces.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/logflow/patternflow/internal/model"
)

// Parser defines the interface for parsing event logs.
// Implementations must not retain references to the output channel after
// returning. Events sent on out are owned by the receiver.
type Parser interface {
	// Parse reads from r and sends parsed events to out.
	// It should respect context cancellation.
	// The caller is responsible for closing the out channel.
	Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXES
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXES:
		return "xes"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV
	case "xes":
		return FormatXES
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat guesses the format from a file name. A trailing .gz is
// ignored.
func DetectFormat(name string) Format {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	return ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Config holds common parser configuration.
type Config struct {
	// BufferSize is the size of the read buffer in bytes.
	BufferSize int

	// CaseIDColumn is the name of the case ID column (CSV, XLSX).
	CaseIDColumn string

	// ActivityColumn is the name of the activity column (CSV, XLSX).
	ActivityColumn string

	// TimestampColumn is the name of the timestamp column (CSV, XLSX).
	// It is optional: rows without a parseable timestamp keep zero.
	TimestampColumn string

	// ResourceColumn is the name of the resource column (CSV, XLSX).
	ResourceColumn string

	// TimestampFormat is tried before the built-in layouts.
	TimestampFormat string

	// Delimiter is the field delimiter for CSV (default: comma).
	Delimiter byte

	// Sheet selects the XLSX sheet. Empty means the first one.
	Sheet string
}

// DefaultConfig returns a Config with XES-style column names.
func DefaultConfig() Config {
	return Config{
		BufferSize:      64 * 1024,
		CaseIDColumn:    "case:concept:name",
		ActivityColumn:  "concept:name",
		TimestampColumn: "time:timestamp",
		ResourceColumn:  "org:resource",
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		Delimiter:       ',',
	}
}

// NewParser creates a parser for the given format.
func NewParser(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatCSV:
		return NewCSVParser(cfg), nil
	case FormatXES:
		return NewXESParser(cfg), nil
	case FormatXLSX:
		return NewXLSXParser(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

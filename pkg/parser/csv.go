package parser

import (
	"bufio"
	"context"
	"io"
	"sort"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/internal/pool"
)

// CSVParser parses delimited event logs with byte-level field scanning.
// Quoted fields may contain delimiters and doubled quotes but not
// newlines.
type CSVParser struct {
	cfg       Config
	eventPool *pool.EventPool
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &CSVParser{
		cfg:       cfg,
		eventPool: pool.NewEventPool(),
	}
}

// Parse implements the Parser interface. Rows without a case id or
// activity are skipped.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error {
	reader := bufio.NewReaderSize(r, bufferSize(p.cfg))

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return err
	}
	headerLine = trimLineEnding(trimBOM(headerLine))
	if len(headerLine) == 0 {
		return ErrInvalidCSV
	}

	columns := splitFields(headerLine, p.cfg.Delimiter, nil)
	cols := newColumnMap(columns)

	caseIdx, err := cols.require(p.cfg.CaseIDColumn)
	if err != nil {
		return err
	}
	actIdx, err := cols.require(p.cfg.ActivityColumn)
	if err != nil {
		return err
	}
	tsIdx, _ := cols.find(p.cfg.TimestampColumn)
	resIdx, _ := cols.find(p.cfg.ResourceColumn)

	var fields [][]byte
	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = trimLineEnding(line)
		if len(line) > 0 {
			fields = splitFields(line, p.cfg.Delimiter, fields[:0])
			if event := p.eventFromFields(columns, fields, caseIdx, actIdx, tsIdx, resIdx); event != nil {
				select {
				case out <- event:
				case <-ctx.Done():
					p.eventPool.Put(event)
					return ErrContextCanceled
				}
			}
		}

		if err == io.EOF {
			break
		}
	}

	return nil
}

func (p *CSVParser) eventFromFields(columns, fields [][]byte, caseIdx, actIdx, tsIdx, resIdx int) *model.Event {
	if caseIdx >= len(fields) || actIdx >= len(fields) || len(fields[caseIdx]) == 0 || len(fields[actIdx]) == 0 {
		return nil
	}

	event := p.eventPool.Get()
	event.CaseID = append(event.CaseID[:0], fields[caseIdx]...)
	event.Activity = append(event.Activity[:0], fields[actIdx]...)

	if tsIdx >= 0 && tsIdx < len(fields) {
		if ts, err := pool.ParseTimestamp(fields[tsIdx], p.cfg.TimestampFormat); err == nil {
			event.Timestamp = ts
		}
	}
	if resIdx >= 0 && resIdx < len(fields) {
		event.Resource = append(event.Resource[:0], fields[resIdx]...)
	}

	for i, col := range columns {
		if i == caseIdx || i == actIdx || i == tsIdx || i == resIdx || i >= len(fields) || len(fields[i]) == 0 {
			continue
		}
		event.Attributes = append(event.Attributes, model.Attribute{
			Key:   append([]byte(nil), col...),
			Value: append([]byte(nil), fields[i]...),
			Type:  model.AttrTypeString,
		})
	}
	return event
}

// columnMap resolves configured column names against a header, falling
// back to common aliases.
type columnMap map[string]int

var columnAliases = map[string][]string{
	"case:concept:name": {"case_id", "case", "Case ID", "CaseID"},
	"concept:name":      {"activity", "Activity", "event"},
	"time:timestamp":    {"timestamp", "Timestamp", "time"},
	"org:resource":      {"resource", "Resource"},
}

func newColumnMap(columns [][]byte) columnMap {
	m := make(columnMap, len(columns))
	for i, col := range columns {
		if _, dup := m[string(col)]; !dup {
			m[string(col)] = i
		}
	}
	return m
}

func (m columnMap) find(name string) (int, bool) {
	if name == "" {
		return -1, false
	}
	if i, ok := m[name]; ok {
		return i, true
	}
	for _, alias := range columnAliases[name] {
		if i, ok := m[alias]; ok {
			return i, true
		}
	}
	return -1, false
}

// require is find for mandatory columns.
func (m columnMap) require(name string) (int, error) {
	if i, ok := m.find(name); ok {
		return i, nil
	}
	names := make([]string, 0, len(m))
	for col := range m {
		names = append(names, col)
	}
	sort.Strings(names)
	return -1, &ColumnError{Column: name, Available: names}
}

// splitFields splits one CSV line into dst, unquoting quoted fields.
func splitFields(line []byte, delim byte, dst [][]byte) [][]byte {
	start := 0
	inQuotes := false

	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delim && !inQuotes:
			dst = append(dst, unquoteField(line[start:i]))
			start = i + 1
		}
	}
	return append(dst, unquoteField(line[start:]))
}

// unquoteField removes surrounding quotes and unescapes embedded quotes.
func unquoteField(field []byte) []byte {
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return field
	}
	field = field[1 : len(field)-1]
	result := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		result = append(result, field[i])
		if field[i] == '"' && i+1 < len(field) && field[i+1] == '"' {
			i++
		}
	}
	return result
}

func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func trimBOM(line []byte) []byte {
	if len(line) >= 3 && line[0] == 0xEF && line[1] == 0xBB && line[2] == 0xBF {
		return line[3:]
	}
	return line
}

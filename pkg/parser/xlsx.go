package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/internal/pool"
)

// XLSXParser reads one sheet of an Excel workbook. The first row is the
// header; column resolution matches the CSV parser.
type XLSXParser struct {
	cfg       Config
	eventPool *pool.EventPool
}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser(cfg Config) *XLSXParser {
	return &XLSXParser{
		cfg:       cfg,
		eventPool: pool.NewEventPool(),
	}
}

// Parse implements the Parser interface. The workbook is read fully into
// memory by excelize before rows are streamed.
func (p *XLSXParser) Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("parser: open xlsx: %w", err)
	}
	defer xl.Close()

	sheet := p.cfg.Sheet
	if sheet == "" {
		sheets := xl.GetSheetList()
		if len(sheets) == 0 {
			return ErrInvalidXLSX
		}
		sheet = sheets[0]
	}

	rows, err := xl.Rows(sheet)
	if err != nil {
		return fmt.Errorf("parser: read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return ErrInvalidXLSX
	}
	header, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("parser: read header: %w", err)
	}

	columns := make([][]byte, len(header))
	for i, h := range header {
		columns[i] = []byte(h)
	}
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

	for rows.Next() {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		cells, err := rows.Columns()
		if err != nil || len(cells) == 0 {
			continue
		}
		if caseIdx >= len(cells) || actIdx >= len(cells) || cells[caseIdx] == "" || cells[actIdx] == "" {
			continue
		}

		event := p.eventPool.Get()
		event.CaseID = append(event.CaseID[:0], cells[caseIdx]...)
		event.Activity = append(event.Activity[:0], cells[actIdx]...)
		if tsIdx >= 0 && tsIdx < len(cells) {
			if ts, err := pool.ParseTimestamp([]byte(cells[tsIdx]), p.cfg.TimestampFormat); err == nil {
				event.Timestamp = ts
			}
		}
		if resIdx >= 0 && resIdx < len(cells) {
			event.Resource = append(event.Resource[:0], cells[resIdx]...)
		}
		for i, h := range header {
			if i == caseIdx || i == actIdx || i == tsIdx || i == resIdx || i >= len(cells) || cells[i] == "" {
				continue
			}
			event.Attributes = append(event.Attributes, model.Attribute{
				Key:   []byte(h),
				Value: []byte(cells[i]),
				Type:  model.AttrTypeString,
			})
		}

		select {
		case out <- event:
		case <-ctx.Done():
			p.eventPool.Put(event)
			return ErrContextCanceled
		}
	}

	return rows.Error()
}

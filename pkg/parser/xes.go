package parser

import (
	"bufio"
	"bytes"
	"context"
	"html"
	"io"
	"strconv"

	"github.com/logflow/patternflow/internal/model"
	"github.com/logflow/patternflow/internal/pool"
)

// XES attribute keys
var (
	xesConceptName = []byte("concept:name")
	xesTimeStamp   = []byte("time:timestamp")
	xesOrgResource = []byte("org:resource")
)

// XML element names
var (
	xmlTrace  = []byte("trace")
	xmlEvent  = []byte("event")
	xmlString = []byte("string")
	xmlDate   = []byte("date")
	xmlInt    = []byte("int")
	xmlFloat  = []byte("float")
	xmlBool   = []byte("boolean")
	xmlID     = []byte("id")

	xmlKey   = []byte(` key="`)
	xmlValue = []byte(` value="`)
)

type xesState uint8

const (
	stateLog xesState = iota
	stateTrace
	stateEvent
)

// XESParser streams XES files tag by tag. Traces without a concept:name
// are named by their position in the file.
type XESParser struct {
	cfg       Config
	eventPool *pool.EventPool
}

// NewXESParser creates a new XES parser.
func NewXESParser(cfg Config) *XESParser {
	return &XESParser{
		cfg:       cfg,
		eventPool: pool.NewEventPool(),
	}
}

// Parse implements the Parser interface.
func (p *XESParser) Parse(ctx context.Context, r io.Reader, out chan<- *model.Event) error {
	reader := bufio.NewReaderSize(r, bufferSize(p.cfg))

	state := stateLog
	traces := 0
	var caseID []byte
	var pending []*model.Event
	var current *model.Event

	// Events are held until the trace closes so that a concept:name
	// written after them still names the case.
	flush := func() error {
		for i, e := range pending {
			e.CaseID = append(e.CaseID[:0], caseID...)
			select {
			case out <- e:
			case <-ctx.Done():
				for _, rest := range pending[i:] {
					p.eventPool.Put(rest)
				}
				pending = pending[:0]
				return ErrContextCanceled
			}
		}
		pending = pending[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('>')
		if err != nil && err != io.EOF {
			return err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = bytes.TrimSpace(line)
		if i := bytes.IndexByte(line, '<'); i > 0 {
			line = line[i:]
		}
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		switch {
		case isOpenTag(line, xmlTrace):
			state = stateTrace
			caseID = strconv.AppendInt(caseID[:0], int64(traces), 10)
			traces++

		case isCloseTag(line, xmlTrace):
			if ferr := flush(); ferr != nil {
				return ferr
			}
			state = stateLog

		case state == stateTrace && isOpenTag(line, xmlEvent):
			current = p.eventPool.Get()
			if isSelfClosing(line) {
				pending = append(pending, current)
				current = nil
			} else {
				state = stateEvent
			}

		case state == stateEvent && isCloseTag(line, xmlEvent):
			pending = append(pending, current)
			current = nil
			state = stateTrace

		case state == stateTrace && isAttributeTag(line):
			key, value := extractAttribute(line)
			if bytes.Equal(key, xesConceptName) {
				caseID = append(caseID[:0], value...)
			}

		case state == stateEvent && isAttributeTag(line):
			p.processEventAttribute(line, current)
		}

		if err == io.EOF {
			break
		}
	}

	if current != nil {
		p.eventPool.Put(current)
	}
	return flush()
}

func bufferSize(cfg Config) int {
	if cfg.BufferSize <= 0 {
		return pool.DefaultBufferSize
	}
	return cfg.BufferSize
}

// isOpenTag checks if line opens the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 || line[0] != '<' {
		return false
	}
	if !bytes.HasPrefix(line[1:], element) {
		return false
	}
	c := line[1+len(element)]
	return c == '>' || c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/'
}

// isCloseTag checks if line closes the given element.
func isCloseTag(line, element []byte) bool {
	if len(line) < len(element)+3 || line[0] != '<' || line[1] != '/' {
		return false
	}
	return bytes.HasPrefix(line[2:], element)
}

func isSelfClosing(line []byte) bool {
	return len(line) >= 2 && line[len(line)-2] == '/'
}

// isAttributeTag checks if line is an XES attribute element.
func isAttributeTag(line []byte) bool {
	if len(line) < 3 || line[0] != '<' {
		return false
	}
	return isOpenTag(line, xmlString) ||
		isOpenTag(line, xmlDate) ||
		isOpenTag(line, xmlInt) ||
		isOpenTag(line, xmlFloat) ||
		isOpenTag(line, xmlBool) ||
		isOpenTag(line, xmlID)
}

// extractAttribute returns the key and unescaped value of an XES
// attribute element.
func extractAttribute(line []byte) (key, value []byte) {
	key = extractAttrValue(line, xmlKey)
	value = extractAttrValue(line, xmlValue)
	if bytes.IndexByte(value, '&') >= 0 {
		value = []byte(html.UnescapeString(string(value)))
	}
	return key, value
}

func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}

// processEventAttribute copies one attribute element into event.
func (p *XESParser) processEventAttribute(line []byte, event *model.Event) {
	key, value := extractAttribute(line)
	if key == nil || value == nil {
		return
	}

	switch {
	case bytes.Equal(key, xesConceptName):
		event.Activity = append(event.Activity[:0], value...)

	case bytes.Equal(key, xesTimeStamp):
		if ts, err := pool.ParseTimestamp(value, p.cfg.TimestampFormat); err == nil {
			event.Timestamp = ts
		}

	case bytes.Equal(key, xesOrgResource):
		event.Resource = append(event.Resource[:0], value...)

	default:
		event.Attributes = append(event.Attributes, model.Attribute{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), value...),
			Type:  attributeType(line),
		})
	}
}

// attributeType maps the XES element name to an attribute type.
func attributeType(line []byte) model.AttrType {
	switch {
	case isOpenTag(line, xmlDate):
		return model.AttrTypeTimestamp
	case isOpenTag(line, xmlInt):
		return model.AttrTypeInt
	case isOpenTag(line, xmlFloat):
		return model.AttrTypeFloat
	case isOpenTag(line, xmlBool):
		return model.AttrTypeBool
	default:
		return model.AttrTypeString
	}
}

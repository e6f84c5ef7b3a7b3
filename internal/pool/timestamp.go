package pool

import (
	"errors"
	"strconv"
	"time"
)

// ErrInvalidTimestamp indicates a timestamp in none of the known layouts.
var ErrInvalidTimestamp = errors.New("pool: invalid timestamp format")

// Layouts tried after the ISO 8601 fast path, ordered by likelihood.
var commonLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
}

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseTimestamp parses b into nanoseconds since the Unix epoch. It
// accepts ISO 8601, Excel serial dates, the common layouts above and
// any extra layouts given, which are tried first.
func ParseTimestamp(b []byte, extra ...string) (int64, error) {
	if len(b) == 0 {
		return 0, ErrInvalidTimestamp
	}

	if len(b) >= 19 && b[4] == '-' && b[7] == '-' && (b[10] == 'T' || b[10] == ' ') {
		if ns, ok := parseISO8601(b); ok {
			return ns, nil
		}
	}

	if isNumeric(b) {
		return parseExcelSerial(b)
	}

	s := string(b)
	for _, layout := range extra {
		if layout == "" {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixNano(), nil
		}
	}
	for _, layout := range commonLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixNano(), nil
		}
	}
	return 0, ErrInvalidTimestamp
}

// parseISO8601 reads YYYY-MM-DD[T ]hh:mm:ss[.frac][Z|±hh[:]mm] by byte
// arithmetic.
func parseISO8601(b []byte) (int64, bool) {
	year, ok1 := digits(b[0:4])
	month, ok2 := digits(b[5:7])
	day, ok3 := digits(b[8:10])
	hour, ok4 := digits(b[11:13])
	minute, ok5 := digits(b[14:16])
	second, ok6 := digits(b[17:19])
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, false
	}

	i := 19
	nsec := 0
	if i < len(b) && b[i] == '.' {
		i++
		scale := 100000000
		for ; i < len(b) && b[i] >= '0' && b[i] <= '9'; i++ {
			nsec += int(b[i]-'0') * scale
			scale /= 10
		}
	}

	loc := time.UTC
	if i < len(b) {
		switch b[i] {
		case 'Z':
		case '+', '-':
			rest := b[i+1:]
			if len(rest) == 5 && rest[2] == ':' {
				rest = append(append([]byte(nil), rest[:2]...), rest[3:]...)
			}
			if len(rest) != 4 {
				return 0, false
			}
			oh, okh := digits(rest[:2])
			om, okm := digits(rest[2:])
			if !okh || !okm {
				return 0, false
			}
			offset := oh*3600 + om*60
			if b[i] == '-' {
				offset = -offset
			}
			loc = time.FixedZone("", offset)
		default:
			return 0, false
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc).UnixNano(), true
}

// parseExcelSerial converts days since 1899-12-30 to nanoseconds.
func parseExcelSerial(b []byte) (int64, error) {
	val, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, ErrInvalidTimestamp
	}
	days := int64(val)
	t := excelEpoch.AddDate(0, 0, int(days))
	if frac := val - float64(days); frac > 0 {
		t = t.Add(time.Duration(frac * 24 * float64(time.Hour)))
	}
	return t.UnixNano(), nil
}

func digits(b []byte) (int, bool) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func isNumeric(b []byte) bool {
	dot := false
	for i, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot:
			dot = true
		case c == '-' && i == 0:
		default:
			return false
		}
	}
	return true
}

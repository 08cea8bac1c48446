package decoder

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Delimiter separates fields in every dump file
const Delimiter = ';'

// Date bounds accepted by the 8-digit compact date form
const (
	MinYear = 1000
	MaxYear = 9999
)

// FieldIssue reports why one field decoded to absent
type FieldIssue struct {
	Column string
	Raw    string
	Reason string
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s=%q: %s", i.Column, i.Raw, i.Reason)
}

// RowValidationError marks a line that cannot be applied: wrong column count or
// an absent required field. The row is skipped and counted.
type RowValidationError struct {
	Schema string
	Line   int
	Reason string
	Issues []FieldIssue
}

func (e *RowValidationError) Error() string {
	msg := fmt.Sprintf("%s line %d: %s", e.Schema, e.Line, e.Reason)
	if len(e.Issues) > 0 {
		parts := make([]string, len(e.Issues))
		for i, issue := range e.Issues {
			parts[i] = issue.String()
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

// Decode parses one raw line against schema. It is pure: the same input always
// yields an equal Record.
func Decode(schema *Schema, line int, raw string) Record {
	rec := Record{
		Schema: schema,
		Line:   line,
		Values: make([]Value, len(schema.Columns)),
	}

	fields, err := split(raw)
	if err != nil {
		rec.Err = &RowValidationError{Schema: schema.Name, Line: line, Reason: "unparseable line: " + err.Error()}
		return rec
	}

	var reasons []string
	if len(fields) < len(schema.Columns) {
		reasons = append(reasons, fmt.Sprintf("expected %d columns, got %d", len(schema.Columns), len(fields)))
	} else if extra := fields[len(schema.Columns):]; !allNull(extra) {
		reasons = append(reasons, fmt.Sprintf("expected %d columns, got %d", len(schema.Columns), len(fields)))
	}

	for i, col := range schema.Columns {
		if i >= len(fields) {
			break
		}
		v, issue := decodeField(col, fields[i])
		rec.Values[i] = v
		if issue != nil {
			rec.Issues = append(rec.Issues, *issue)
		}
	}

	for i, col := range schema.Columns {
		if col.Required && !rec.Values[i].Present {
			reasons = append(reasons, "required column "+col.Name+" is absent")
		}
	}

	if len(reasons) > 0 {
		rec.Err = &RowValidationError{
			Schema: schema.Name,
			Line:   line,
			Reason: strings.Join(reasons, "; "),
			Issues: rec.Issues,
		}
	}
	return rec
}

// split breaks a line on the delimiter, removing optional double-quote
// wrapping. A quoted-empty token comes back as an empty string.
func split(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty line")
	}
	r := csv.NewReader(strings.NewReader(raw))
	r.Comma = Delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}

// isNull reports whether a field uses the null-sentinel convention
func isNull(field string) bool {
	t := strings.TrimSpace(field)
	return t == "" || t == `""`
}

func allNull(fields []string) bool {
	for _, f := range fields {
		if !isNull(f) {
			return false
		}
	}
	return true
}

func decodeField(col Column, field string) (Value, *FieldIssue) {
	if isNull(field) {
		return Value{}, nil
	}
	text := strings.TrimSpace(field)

	fail := func(reason string) (Value, *FieldIssue) {
		return Value{}, &FieldIssue{Column: col.Name, Raw: field, Reason: reason}
	}

	switch col.Type {
	case String:
		if col.Digits > 0 && (len(text) != col.Digits || !allDigits(text)) {
			return fail(fmt.Sprintf("want %d digits", col.Digits))
		}
		return Value{Present: true, Text: text}, nil

	case Int:
		n, ok := ParseInt(text)
		if !ok {
			return fail("not an integer")
		}
		return Value{Present: true, Text: text, Int: n}, nil

	case Date:
		if isZeroDate(text) {
			return Value{}, nil
		}
		d, ok := ParseDate(text)
		if !ok {
			return fail("not a calendar date in YYYYMMDD form")
		}
		return Value{Present: true, Text: text, Date: d}, nil

	case Decimal:
		d, err := decimal.NewFromString(strings.Replace(text, ",", ".", 1))
		if err != nil {
			return fail("not a decimal number")
		}
		return Value{Present: true, Text: text, Decimal: d}, nil

	case List:
		sep := col.ListSep
		if sep == "" {
			sep = ","
		}
		var items []string
		for _, item := range strings.Split(text, sep) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return Value{}, nil
		}
		return Value{Present: true, Text: text, List: items}, nil

	case Flag:
		switch strings.ToUpper(text) {
		case "S":
			return Value{Present: true, Text: text, Flag: true}, nil
		case "N":
			return Value{Present: true, Text: text, Flag: false}, nil
		}
		return fail("not an S/N flag")
	}

	return fail("unknown column type " + col.Type.String())
}

// ParseInt is the safe integer parse: ok is false instead of a sentinel value
func ParseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDate decodes an 8-digit YYYYMMDD date, rejecting values outside the
// calendar (month 13, February 30, ...)
func ParseDate(s string) (time.Time, bool) {
	if len(s) != 8 || !allDigits(s) {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	if year < MinYear || year > MaxYear || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow; a changed day means it did not exist
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

func isZeroDate(s string) bool {
	return strings.Trim(s, "0") == ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

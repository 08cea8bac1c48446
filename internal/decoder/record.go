package decoder

import (
	"time"

	"github.com/shopspring/decimal"
)

// Value is one decoded field. Present is false for null sentinels and for
// fields that failed to parse.
type Value struct {
	Present bool
	Text    string
	Int     int64
	Date    time.Time
	Decimal decimal.Decimal
	List    []string
	Flag    bool
}

// Record is the result of decoding one line
type Record struct {
	Schema *Schema
	Line   int
	Values []Value
	// Issues lists fields that decoded to absent because they were malformed.
	Issues []FieldIssue
	// Err is set when the row as a whole must be skipped.
	Err *RowValidationError
}

// Valid reports whether the row can be applied
func (r *Record) Valid() bool {
	return r.Err == nil
}

func (r *Record) value(name string) Value {
	i, ok := r.Schema.Index(name)
	if !ok || i >= len(r.Values) {
		return Value{}
	}
	return r.Values[i]
}

// String returns a text column
func (r *Record) String(name string) (string, bool) {
	v := r.value(name)
	return v.Text, v.Present
}

// Int returns an integer column
func (r *Record) Int(name string) (int64, bool) {
	v := r.value(name)
	return v.Int, v.Present
}

// Date returns a date column
func (r *Record) Date(name string) (time.Time, bool) {
	v := r.value(name)
	return v.Date, v.Present
}

// Decimal returns a decimal column
func (r *Record) Decimal(name string) (decimal.Decimal, bool) {
	v := r.value(name)
	return v.Decimal, v.Present
}

// List returns the ordered items of a multi-valued column
func (r *Record) List(name string) ([]string, bool) {
	v := r.value(name)
	return v.List, v.Present
}

// Flag returns an S/N column
func (r *Record) Flag(name string) (bool, bool) {
	v := r.value(name)
	return v.Flag, v.Present
}

// StringPtr returns nil for an absent text column
func (r *Record) StringPtr(name string) *string {
	if s, ok := r.String(name); ok {
		return &s
	}
	return nil
}

// IntPtr returns nil for an absent integer column
func (r *Record) IntPtr(name string) *int64 {
	if n, ok := r.Int(name); ok {
		return &n
	}
	return nil
}

// DatePtr returns nil for an absent date column
func (r *Record) DatePtr(name string) *time.Time {
	if d, ok := r.Date(name); ok {
		return &d
	}
	return nil
}

// FlagPtr returns nil for an absent flag column
func (r *Record) FlagPtr(name string) *bool {
	if f, ok := r.Flag(name); ok {
		return &f
	}
	return nil
}

// NullDecimal returns an invalid NullDecimal for an absent decimal column
func (r *Record) NullDecimal(name string) decimal.NullDecimal {
	d, ok := r.Decimal(name)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

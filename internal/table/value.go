// Package table defines the in-memory tabular model shared by the loader,
// the merge engine, and the exporters.
//
// Cells are an explicit three-state variant (text | number | missing) so type
// decisions happen once, at the load boundary, instead of leaking ad-hoc
// string coercion into the merge engine.
package table

import (
	"strconv"
	"strings"
)

// Kind discriminates the cell variant.
type Kind uint8

const (
	Missing Kind = iota
	Text
	Number
)

// Value is one cell. The zero Value is Missing.
type Value struct {
	Kind Kind
	Text string
	Num  float64
}

// TextValue returns a text cell.
func TextValue(s string) Value { return Value{Kind: Text, Text: s} }

// NumberValue returns a numeric cell.
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// MissingValue returns the missing sentinel.
func MissingValue() Value { return Value{} }

// IsMissing reports whether the cell carries no value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Bind converts the cell to a database/sql- or pgx-compatible bind value.
// Missing becomes nil; integral numbers bind as int64 for cleaner column types.
func (v Value) Bind() any {
	switch v.Kind {
	case Text:
		return v.Text
	case Number:
		if v.Num == float64(int64(v.Num)) {
			return int64(v.Num)
		}
		return v.Num
	default:
		return nil
	}
}

// String renders the cell for CSV output and log lines. Missing renders empty.
func (v Value) String() string {
	switch v.Kind {
	case Text:
		return v.Text
	case Number:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	default:
		return ""
	}
}

// AppendCanonical writes a stable, collision-safe encoding of the cell.
//
// Rules (shared by key tuples, row hashing, and cache keys):
//   - Missing is a single NUL byte so missing differs from empty text.
//   - A kind tag precedes the payload so text "1" never equals number 1.
//   - Numbers use strconv 'g' formatting, matching the hash canonicalization
//     used elsewhere in the pipeline.
func (v Value) AppendCanonical(b *strings.Builder) {
	switch v.Kind {
	case Text:
		b.WriteByte('t')
		b.WriteString(v.Text)
	case Number:
		b.WriteByte('n')
		b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
	default:
		b.WriteByte('\x00')
	}
}

// Equal reports deep equality of two cells.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Text:
		return v.Text == o.Text
	case Number:
		return v.Num == o.Num
	default:
		return true
	}
}

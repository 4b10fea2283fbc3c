// Package csv loads departmental CSV exports into tables.
//
// All column-name normalization happens here, at the load boundary: the merge
// engine downstream assumes normalized, comparable column names and does no
// normalization of its own. Likewise all text→number conversion is explicit
// and happens here; cells leave this package as text, number, or missing.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"gramodaya/internal/table"
	"gramodaya/internal/transformer"
)

// Options control CSV parsing. The zero value plus DefaultOptions covers the
// Gramodaya exports.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// HasHeader controls header row handling. Exports always carry headers;
	// headerless files map columns positionally and keep synthetic names.
	HasHeader bool

	// TrimSpace trims leading/trailing whitespace from every field.
	TrimSpace bool

	// LazyQuotes tolerates bare quotes inside fields (some department exports
	// are hand-edited).
	LazyQuotes bool

	// NullValues are sentinel strings decoded as the missing value, compared
	// after trimming. The empty string is always a sentinel.
	NullValues []string

	// HeaderMap renames source headers (post-normalization) to canonical
	// field names, e.g. {"beneficiary_id": "ben_id"}.
	HeaderMap map[string]string
}

// DefaultOptions matches the raw Gramodaya exports: comma-separated, headered,
// with the MySQL dump null sentinel.
func DefaultOptions() Options {
	return Options{
		Comma:      ',',
		HasHeader:  true,
		TrimSpace:  true,
		NullValues: []string{`\N`},
	}
}

// headerFold strips combining marks so accented and unaccented spellings of
// the same header compare equal across department exports.
var headerFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader folds a raw header to its canonical comparable form:
// diacritics removed, lowercased, inner whitespace collapsed to underscores.
func NormalizeHeader(h string) string {
	if transformer.HasEdgeSpace(h) {
		h = strings.TrimSpace(h)
	}
	if folded, _, err := transform.String(headerFold, h); err == nil {
		h = folded
	}
	h = strings.ToLower(h)
	return strings.Join(strings.Fields(h), "_")
}

// ReadTable parses one CSV source into a table with the given provenance
// label.
//
// Behavior:
//   - The first header cell is stripped of a UTF-8 BOM if present.
//   - Headers are normalized (NormalizeHeader) and then renamed through
//     opt.HeaderMap.
//   - Ragged records are tolerated: short records pad with missing, long
//     records drop the extra fields.
//   - Each field becomes missing (empty or a null sentinel), a number (when
//     it round-trips cleanly, so zero-padded identifiers stay text), or text.
//
// Errors:
//   - Any csv syntax error is fatal: a corrupt export must be fixed upstream,
//     not silently half-loaded.
func ReadTable(ctx context.Context, src io.Reader, label string, opt Options) (*table.Table, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	nulls := make(map[string]struct{}, len(opt.NullValues))
	for _, s := range opt.NullValues {
		nulls[s] = struct{}{}
	}

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	var columns []string
	if opt.HasHeader {
		hdr, err := readRec()
		if err != nil {
			return nil, fmt.Errorf("%s: read header: %w", label, err)
		}
		columns = make([]string, len(hdr))
		for i, h := range hdr {
			if i == 0 {
				h = strings.TrimPrefix(h, "\ufeff")
			}
			h = NormalizeHeader(h)
			if mapped, ok := opt.HeaderMap[h]; ok {
				h = mapped
			}
			columns[i] = h
		}
	}

	t := table.New(label, columns)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: csv read line %d: %w", label, line, err)
		}

		if columns == nil {
			// Headerless file: synthesize positional column names from the
			// first record's width.
			columns = make([]string, len(rec))
			for i := range columns {
				columns[i] = "col_" + strconv.Itoa(i+1)
			}
			t.Columns = columns
		}

		row := make([]table.Value, len(columns))
		for i := range columns {
			if i >= len(rec) {
				continue // short record: stays missing
			}
			row[i] = decodeCell(rec[i], opt.TrimSpace, nulls)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func decodeCell(raw string, trim bool, nulls map[string]struct{}) table.Value {
	v := raw
	if trim && transformer.HasEdgeSpace(v) {
		v = strings.TrimSpace(v)
	}
	if v == "" {
		return table.MissingValue()
	}
	if _, isNull := nulls[v]; isNull {
		return table.MissingValue()
	}
	if looksNumeric(v) {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return table.NumberValue(f)
		}
	}
	return table.TextValue(v)
}

// looksNumeric accepts only values whose numeric form is faithful: plain
// decimal numbers without padding. Zero-padded codes ("007"), phone numbers
// with separators, and anything exotic stay text so no information is lost.
func looksNumeric(s string) bool {
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	if i >= len(s) {
		return false
	}
	intDigits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		intDigits++
		i++
	}
	if intDigits == 0 {
		return false
	}
	// Reject zero padding: "007" is an identifier, not the number 7.
	start := 0
	if s[0] == '-' || s[0] == '+' {
		start = 1
	}
	if intDigits > 1 && s[start] == '0' {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}
	i++
	fracDigits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		fracDigits++
		i++
	}
	return fracDigits > 0 && i == len(s)
}

// Package dataset holds the raw tabular catalog and its admission into listings.
package dataset

import (
	"database/sql"
	"fmt"
)

// Frame is an immutable table of nullable text cells with named columns.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]sql.NullString
}

// New validates and creates a Frame.
// Column names must be unique and every row must have one cell per column.
func New(columns []string, rows [][]sql.NullString) (Frame, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return Frame{}, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return Frame{}, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return Frame{}, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(columns))
		}
	}
	return Frame{columns: columns, index: index, rows: rows}, nil
}

// naTokens are the cell texts read as missing, matching common CSV tooling.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether a text cell denotes a missing value.
func IsNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// FromRecords builds a Frame from text records, turning NA tokens into nulls.
func FromRecords(columns []string, records [][]string) (Frame, error) {
	rows := make([][]sql.NullString, len(records))
	for i, rec := range records {
		row := make([]sql.NullString, len(rec))
		for j, v := range rec {
			row[j] = sql.NullString{String: v, Valid: !IsNA(v)}
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Columns returns the column names in order.
func (f Frame) Columns() []string { return f.columns }

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.rows) }

// HasColumn reports whether the column exists.
func (f Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Value returns the cell at row/column. ok is false for null cells and unknown columns.
func (f Frame) Value(row int, column string) (string, bool) {
	i, ok := f.index[column]
	if !ok || row < 0 || row >= len(f.rows) {
		return "", false
	}
	cell := f.rows[row][i]
	return cell.String, cell.Valid
}

// MissingColumns returns the required columns absent from the frame, in required order.
func (f Frame) MissingColumns(required []string) []string {
	var missing []string
	for _, c := range required {
		if !f.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

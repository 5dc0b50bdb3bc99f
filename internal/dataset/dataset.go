// Package dataset loads the historical car listings the feature schema is
// derived from. Two sources are supported: a delimited text file and a
// SQLite database holding the same columns in one table.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned when a source has no header row
var ErrEmpty = errors.New("dataset has no columns")

// missingValues are the cell texts read as missing. They match the default
// NA markers of the pipeline the model was trained with, compared verbatim.
var missingValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissing reports whether a cell is one of the missing-value markers
func IsMissing(v string) bool {
	return missingValues[v]
}

// cell maps missing-value markers to the empty string and keeps anything
// else untouched
func cell(v string) string {
	if IsMissing(v) {
		return ""
	}
	return v
}

// Table is an in-memory, string-typed tabular dataset
type Table struct {
	Columns []string
	Rows    [][]string
}

// Options control how a dataset path is read
type Options struct {
	Delimiter rune
	Table     string
}

// Load reads a dataset, choosing the reader from the file extension
func Load(path string, opts Options) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path, opts.Table)
	default:
		return LoadCSV(path, opts.Delimiter)
	}
}

// Index returns the position of a column, or -1
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Values returns every value of a column in row order
func (t *Table) Values(name string) ([]string, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

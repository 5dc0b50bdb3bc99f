// Package features turns raw form submissions into the fixed-position
// feature vector the price classifier was trained on.
//
// The training frame was built with drop-first one-hot encoding: every
// categorical column is replaced by one indicator column per distinct value,
// minus the lexically first value (the reference level). A Schema captures the
// resulting column order together with the known levels of each categorical
// field, so that a single record can be encoded and aligned the same way.
package features

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kartoza/car-estimator/internal/dataset"
)

var (
	// ErrUnknownColumn is returned when a configured column is missing from the dataset
	ErrUnknownColumn = errors.New("unknown column")
	// ErrDuplicateColumn is returned when two feature columns share a name
	ErrDuplicateColumn = errors.New("duplicate feature column")
)

// SchemaOptions lists the columns to drop, to expand, and the label column
type SchemaOptions struct {
	Exclude     []string
	Categorical []string
	Target      string
}

// Field describes one categorical input and the levels seen at training time
type Field struct {
	Name      string   `json:"name"`
	Levels    []string `json:"levels"`
	Reference string   `json:"reference"`
}

// Schema is the ordered list of feature columns the classifier expects.
// It is immutable once built and safe for concurrent use.
type Schema struct {
	columns     []string
	index       map[string]int
	categorical []Field
	fields      map[string]int
}

// NewSchema assembles a schema from explicit parts. Levels of each field are
// sorted and the first one becomes its reference level.
func NewSchema(columns []string, categorical []Field) (*Schema, error) {
	s := &Schema{
		columns:     append([]string(nil), columns...),
		index:       make(map[string]int, len(columns)),
		categorical: make([]Field, len(categorical)),
		fields:      make(map[string]int, len(categorical)),
	}

	for i, c := range s.columns {
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		s.index[c] = i
	}

	for i, f := range categorical {
		levels := append([]string(nil), f.Levels...)
		sort.Strings(levels)
		ref := ""
		if len(levels) > 0 {
			ref = levels[0]
		}
		s.categorical[i] = Field{Name: f.Name, Levels: levels, Reference: ref}
		s.fields[f.Name] = i
	}

	return s, nil
}

// BuildSchema derives the schema from the historical dataset
func BuildSchema(t *dataset.Table, opts SchemaOptions) (*Schema, error) {
	if t == nil || len(t.Columns) == 0 {
		return nil, dataset.ErrEmpty
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, c := range opts.Exclude {
		excluded[c] = true
	}
	categorical := make(map[string]bool, len(opts.Categorical))
	for _, c := range opts.Categorical {
		if excluded[c] || t.Index(c) < 0 {
			return nil, fmt.Errorf("%w: categorical column %q", ErrUnknownColumn, c)
		}
		categorical[c] = true
	}

	var columns []string
	for _, c := range t.Columns {
		if excluded[c] || categorical[c] || c == opts.Target {
			continue
		}
		columns = append(columns, c)
	}

	fields := make([]Field, 0, len(opts.Categorical))
	for _, name := range opts.Categorical {
		values, err := t.Values(name)
		if err != nil {
			return nil, err
		}
		levels := distinct(values)
		fields = append(fields, Field{Name: name, Levels: levels})
		for _, level := range dropFirst(levels) {
			columns = append(columns, IndicatorName(name, level))
		}
	}

	return NewSchema(columns, fields)
}

// IndicatorName is the column name of one level of a categorical field
func IndicatorName(field, level string) string {
	return field + "_" + level
}

// Columns returns a copy of the ordered feature names
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len is the number of feature columns
func (s *Schema) Len() int {
	return len(s.columns)
}

// Has reports whether a column is part of the schema
func (s *Schema) Has(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Fields returns the categorical fields in encoding order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.categorical))
	for i, f := range s.categorical {
		out[i] = Field{Name: f.Name, Levels: append([]string(nil), f.Levels...), Reference: f.Reference}
	}
	return out
}

// IsCategorical reports whether a field is one-hot encoded
func (s *Schema) IsCategorical(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// Known reports whether value was seen for field in the training data
func (s *Schema) Known(field, value string) bool {
	i, ok := s.fields[field]
	if !ok {
		return false
	}
	levels := s.categorical[i].Levels
	j := sort.SearchStrings(levels, value)
	return j < len(levels) && levels[j] == value
}

// Match checks that names are exactly the schema columns in order
func (s *Schema) Match(names []string) error {
	if len(names) != len(s.columns) {
		return fmt.Errorf("expected %d feature columns, got %d", len(s.columns), len(names))
	}
	for i, n := range names {
		if n != s.columns[i] {
			return fmt.Errorf("feature %d: expected %q, got %q", i, s.columns[i], n)
		}
	}
	return nil
}

// distinct returns the sorted non-empty values
func distinct(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func dropFirst(levels []string) []string {
	if len(levels) == 0 {
		return nil
	}
	return levels[1:]
}

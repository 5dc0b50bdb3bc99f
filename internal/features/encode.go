package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrValueType is returned when a numeric field holds a non-numeric value
	ErrValueType = errors.New("unsupported value type")
	// ErrUnseenCategory is returned by callers that refuse unseen levels
	ErrUnseenCategory = errors.New("unseen category")
)

// MultiValueSeparator joins multi-choice answers into one categorical value
const MultiValueSeparator = ", "

// Record is one raw form submission keyed by dataset column name
type Record map[string]interface{}

// Encoded is the one-hot expansion of a record unioned with its numeric fields
type Encoded map[string]float64

// Aligned holds values in exactly the schema's column order
type Aligned struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Unseen notes a categorical value that has no indicator column and no
// reference level in the training data
type Unseen struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (u Unseen) String() string {
	return fmt.Sprintf("%s=%q", u.Field, u.Value)
}

// Encode expands categorical fields into indicator columns and coerces the
// remaining fields to numbers. Non-numeric fields the schema does not
// contain are skipped. The reference level of each field is the
// training-time one, so it produces no column that survives alignment.
func (s *Schema) Encode(rec Record) (Encoded, []Unseen, error) {
	enc := make(Encoded, len(rec)+len(s.categorical))
	var unseen []Unseen

	for _, f := range s.categorical {
		raw, ok := rec[f.Name]
		if !ok || raw == nil {
			continue
		}
		value := categoricalValue(raw)
		if value == "" {
			continue
		}
		if !s.Known(f.Name, value) {
			unseen = append(unseen, Unseen{Field: f.Name, Value: value})
		}
		enc[IndicatorName(f.Name, value)] = 1
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if !s.IsCategorical(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, ok, err := numericValue(rec[k])
		if err != nil {
			// fields outside the schema are discarded by Align anyway
			if !s.Has(k) {
				continue
			}
			return nil, nil, fmt.Errorf("field %s: %w", k, err)
		}
		if ok {
			enc[k] = v
		}
	}

	return enc, unseen, nil
}

// Align reindexes an encoded record against the schema. Columns the schema
// does not know are dropped and missing ones are zero.
func (s *Schema) Align(enc Encoded) Aligned {
	values := make([]float64, len(s.columns))
	for col, v := range enc {
		if i, ok := s.index[col]; ok {
			values[i] = v
		}
	}
	return Aligned{Columns: s.Columns(), Values: values}
}

// Transform encodes and aligns a record in one step
func (s *Schema) Transform(rec Record) (Aligned, []Unseen, error) {
	enc, unseen, err := s.Encode(rec)
	if err != nil {
		return Aligned{}, nil, err
	}
	return s.Align(enc), unseen, nil
}

// Get returns the value of a column
func (a Aligned) Get(column string) (float64, bool) {
	for i, c := range a.Columns {
		if c == column {
			return a.Values[i], true
		}
	}
	return 0, false
}

// Record converts an aligned record back into a raw record of numbers
func (a Aligned) Record() Record {
	rec := make(Record, len(a.Columns))
	for i, c := range a.Columns {
		rec[c] = a.Values[i]
	}
	return rec
}

func categoricalValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case []string:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, MultiValueSeparator)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return fmt.Sprint(v)
	}
}

// numericValue coerces a scalar to a finite float64. ok is false for empty
// strings, which are treated as missing.
func numericValue(raw interface{}) (float64, bool, error) {
	v, ok, err := toFloat(raw)
	if err == nil && ok && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return 0, false, fmt.Errorf("%w: %v is not a finite number", ErrValueType, raw)
	}
	return v, ok, err
}

func toFloat(raw interface{}) (float64, bool, error) {
	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int8:
		return float64(v), true, nil
	case int16:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case uint:
		return float64(v), true, nil
	case uint8:
		return float64(v), true, nil
	case uint16:
		return float64(v), true, nil
	case uint32:
		return float64(v), true, nil
	case uint64:
		return float64(v), true, nil
	case bool:
		if v {
			return 1, true, nil
		}
		return 0, true, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q", ErrValueType, v.String())
		}
		return f, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q is not a number", ErrValueType, v)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %T", ErrValueType, raw)
	}
}

package features

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformKnownRecord(t *testing.T) {
	s := testSchema(t)

	aligned, unseen, err := s.Transform(corollaRecord())
	require.NoError(t, err)
	assert.Empty(t, unseen)

	if diff := cmp.Diff(expectedColumns, aligned.Columns); diff != "" {
		t.Errorf("aligned columns mismatch (-want +got):\n%s", diff)
	}

	want := map[string]float64{
		"Driven_KM":                    50000,
		"EngineV":                      1.6,
		"Year":                         2018,
		"Brand_Toyota":                 1,
		"Model_Corolla":                1,
		"Type_Sedan":                   1,
		"FuelType_Petrol":              1,
		"Safety_Features_ABS, Airbags": 1,
		"Region_Tunis":                 1,
	}
	for i, col := range aligned.Columns {
		assert.Equal(t, want[col], aligned.Values[i], "column %s", col)
	}
}

func TestTransformUnseenCategory(t *testing.T) {
	s := testSchema(t)

	rec := corollaRecord()
	rec["Brand"] = "Dacia"
	rec["Region"] = "Gabès"

	aligned, unseen, err := s.Transform(rec)
	require.NoError(t, err)
	assert.Equal(t, []Unseen{{Field: "Brand", Value: "Dacia"}, {Field: "Region", Value: "Gabès"}}, unseen)

	assert.Equal(t, expectedColumns, aligned.Columns)
	for _, col := range []string{"Brand_Kia", "Brand_Renault", "Brand_Toyota", "Region_Sousse", "Region_Tunis"} {
		v, ok := aligned.Get(col)
		require.True(t, ok)
		assert.Zero(t, v, "column %s", col)
	}
}

func TestTransformReferenceLevel(t *testing.T) {
	s := testSchema(t)

	rec := corollaRecord()
	rec["Brand"] = "BMW"

	aligned, unseen, err := s.Transform(rec)
	require.NoError(t, err)
	assert.Empty(t, unseen, "the reference level is known")
	for _, col := range []string{"Brand_Kia", "Brand_Renault", "Brand_Toyota"} {
		v, _ := aligned.Get(col)
		assert.Zero(t, v)
	}
}

func TestTransformIdempotent(t *testing.T) {
	s := testSchema(t)

	first, _, err := s.Transform(corollaRecord())
	require.NoError(t, err)

	second, unseen, err := s.Transform(first.Record())
	require.NoError(t, err)
	assert.Empty(t, unseen)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-alignment changed the record (-first +second):\n%s", diff)
	}
}

func TestTransformMissingFields(t *testing.T) {
	s := testSchema(t)

	aligned, _, err := s.Transform(Record{"Year": 2010})
	require.NoError(t, err)
	assert.Len(t, aligned.Values, s.Len())

	v, _ := aligned.Get("Year")
	assert.Equal(t, 2010.0, v)
	for i, col := range aligned.Columns {
		if col != "Year" {
			assert.Zero(t, aligned.Values[i], "column %s", col)
		}
	}
}

func TestEncodeDropsUnknownColumns(t *testing.T) {
	s := testSchema(t)

	rec := corollaRecord()
	rec["Color"] = "Red"
	rec["Seats"] = 5

	enc, _, err := s.Encode(rec)
	require.NoError(t, err)
	assert.NotContains(t, enc, "Color")
	assert.Equal(t, 5.0, enc["Seats"])

	aligned := s.Align(enc)
	_, ok := aligned.Get("Seats")
	assert.False(t, ok)
}

func TestEncodeNumericCoercion(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"int", 2018, 2018},
		{"int64", int64(2018), 2018},
		{"float32", float32(2018), 2018},
		{"string", " 2018 ", 2018},
		{"json number", json.Number("2018"), 2018},
		{"bool", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, _, err := s.Encode(Record{"Year": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, enc["Year"])
		})
	}
}

func TestEncodeValueTypeError(t *testing.T) {
	s := testSchema(t)

	_, _, err := s.Encode(Record{"Year": "two thousand"})
	assert.ErrorIs(t, err, ErrValueType)

	_, _, err = s.Encode(Record{"EngineV": []int{1}})
	assert.ErrorIs(t, err, ErrValueType)
}

func TestEncodeRejectsNonFinite(t *testing.T) {
	s := testSchema(t)

	for _, v := range []interface{}{"NaN", "Inf", "-Inf", "+inf", math.NaN(), math.Inf(1), json.Number("1e999")} {
		_, _, err := s.Encode(Record{"Year": v})
		assert.ErrorIs(t, err, ErrValueType, "%v", v)
	}
}

func TestEncodeEmptyValuesAreMissing(t *testing.T) {
	s := testSchema(t)

	enc, unseen, err := s.Encode(Record{"Brand": "", "Year": "", "Safety_Features": []string{}})
	require.NoError(t, err)
	assert.Empty(t, enc)
	assert.Empty(t, unseen)
}

func TestEncodeJoinsMultiChoice(t *testing.T) {
	s := testSchema(t)

	enc, unseen, err := s.Encode(Record{"Safety_Features": []string{"ABS", " ESP "}})
	require.NoError(t, err)
	assert.Empty(t, unseen)
	assert.Equal(t, 1.0, enc["Safety_Features_ABS, ESP"])
}

func TestUnseenString(t *testing.T) {
	assert.Equal(t, `Brand="Dacia"`, Unseen{Field: "Brand", Value: "Dacia"}.String())
}

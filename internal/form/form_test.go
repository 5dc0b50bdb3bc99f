package form

import (
	"net/url"
	"testing"

	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() url.Values {
	return url.Values{
		FieldBrand:           {"Toyota"},
		FieldModel:           {"Corolla"},
		FieldMileage:         {"50000"},
		FieldType:            {"Sedan"},
		FieldEngine:          {"1.6"},
		FieldFuelType:        {"Petrol"},
		FieldSafetyFeatures:  {"Airbags", "ABS"},
		FieldRegion:          {"Tunis"},
		FieldYear:            {"2018"},
		FieldTransmission:    {"Automatic"},
		FieldAccidentHistory: {"No"},
	}
}

func TestParse(t *testing.T) {
	rec, err := DefaultOptions().Parse(validValues())
	require.NoError(t, err)

	assert.Equal(t, features.Record{
		"Brand":            "Toyota",
		"Model":            "Corolla",
		"Driven_KM":        50000,
		"Type":             "Sedan",
		"EngineV":          1.6,
		"FuelType":         "Petrol",
		"Safety_Features":  "ABS, Airbags",
		"Region":           "Tunis",
		"Year":             2018,
		"Transmission":     "Automatic",
		"Accident_History": "No",
	}, rec)
}

func TestParseNoSafetyFeatures(t *testing.T) {
	values := validValues()
	values.Del(FieldSafetyFeatures)

	rec, err := DefaultOptions().Parse(values)
	require.NoError(t, err)
	assert.Equal(t, "", rec[FieldSafetyFeatures])
}

func TestParseWidgetConstraints(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"missing brand", FieldBrand, ""},
		{"unknown brand", FieldBrand, "Lada"},
		{"negative mileage", FieldMileage, "-1"},
		{"fractional mileage", FieldMileage, "10.5"},
		{"negative engine", FieldEngine, "-0.1"},
		{"year too old", FieldYear, "1979"},
		{"year too new", FieldYear, "2026"},
		{"unknown safety feature", FieldSafetyFeatures, "Jet Pack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			values.Set(tt.field, tt.value)
			_, err := DefaultOptions().Parse(values)
			assert.Error(t, err)
		})
	}
}

func TestParseYearBounds(t *testing.T) {
	for _, year := range []string{"1980", "2025"} {
		values := validValues()
		values.Set(FieldYear, year)
		_, err := DefaultOptions().Parse(values)
		assert.NoError(t, err, year)
	}
}

func TestJoinSafetyOptionOrder(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, "ABS, Airbags, ESP", o.JoinSafety([]string{"ESP", "ABS", "Airbags", "ABS"}))
	assert.Equal(t, "", o.JoinSafety(nil))
	assert.Equal(t, "ABS, Heads-up", o.JoinSafety([]string{"Heads-up", "ABS"}))
}

func TestNormalizeSafety(t *testing.T) {
	o := DefaultOptions()
	want := "ABS, Airbags"
	assert.Equal(t, want, o.NormalizeSafety("Airbags", "ABS"))
	assert.Equal(t, want, o.NormalizeSafety("Airbags, ABS"))
	assert.Equal(t, want, o.NormalizeSafety("Airbags,ABS"))
	assert.Equal(t, want, o.NormalizeSafety("Airbags, ABS", "ABS"))
	assert.Equal(t, "", o.NormalizeSafety(""))
	assert.Equal(t, "", o.NormalizeSafety())
}

func TestWithOverrides(t *testing.T) {
	o := DefaultOptions().WithOverrides(config.FormOverrides{Brands: []string{"Dacia", "Seat"}})
	assert.Equal(t, []string{"Dacia", "Seat"}, o.Brands)
	assert.Equal(t, DefaultOptions().Models, o.Models)
}

func TestUnknown(t *testing.T) {
	schema, err := features.NewSchema(
		[]string{"Brand_Toyota"},
		[]features.Field{{Name: "Brand", Levels: []string{"BMW", "Toyota"}}},
	)
	require.NoError(t, err)

	o := DefaultOptions()
	o.Brands = []string{"BMW", "Toyota", "Dacia"}

	assert.Equal(t, []string{"Brand=Dacia"}, o.Unknown(schema))
}

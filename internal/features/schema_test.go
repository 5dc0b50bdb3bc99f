package features

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kartoza/car-estimator/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSchema(t *testing.T) {
	s := testSchema(t)

	if diff := cmp.Diff(expectedColumns, s.Columns()); diff != "" {
		t.Errorf("schema columns mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(expectedColumns), s.Len())
	assert.False(t, s.Has("Price_Category"), "target must be dropped")
	assert.False(t, s.Has("Brand_BMW"), "reference level must be dropped")
	assert.False(t, s.Has("Unnamed: 16"))
}

func TestBuildSchemaMissingMarkers(t *testing.T) {
	const data = "Year;Brand;Safety_Features\n" +
		"2018;Toyota;ABS\n" +
		"2016;Kia;None\n" +
		"2015;BMW;NA\n" +
		"2014;Kia;N/A\n"
	table, err := dataset.ReadCSV(strings.NewReader(data), ';')
	require.NoError(t, err)

	s, err := BuildSchema(table, SchemaOptions{Categorical: []string{"Brand", "Safety_Features"}})
	require.NoError(t, err)

	// ABS is the only real level and drop-first removes it
	if diff := cmp.Diff([]string{"Year", "Brand_Kia", "Brand_Toyota"}, s.Columns()); diff != "" {
		t.Errorf("schema columns mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"ABS"}, s.Fields()[1].Levels)
}

func TestBuildSchemaDeterministic(t *testing.T) {
	first := testSchema(t)
	second := testSchema(t)

	if diff := cmp.Diff(first.Columns(), second.Columns()); diff != "" {
		t.Errorf("schema is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Fields(), second.Fields())
}

func TestBuildSchemaFields(t *testing.T) {
	s := testSchema(t)

	fields := s.Fields()
	require.Len(t, fields, 8)
	assert.Equal(t, "Brand", fields[0].Name)
	assert.Equal(t, []string{"BMW", "Kia", "Renault", "Toyota"}, fields[0].Levels)
	assert.Equal(t, "BMW", fields[0].Reference)

	assert.True(t, s.Known("Region", "Sfax"))
	assert.False(t, s.Known("Region", "Gabès"))
	assert.False(t, s.Known("Color", "Red"))
	assert.True(t, s.IsCategorical("Transmission"))
	assert.False(t, s.IsCategorical("Year"))
}

func TestBuildSchemaMissingCategorical(t *testing.T) {
	opts := testOptions()
	opts.Categorical = append(opts.Categorical, "Drive")

	_, err := BuildSchema(testTable(t), opts)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestBuildSchemaExcludedCategorical(t *testing.T) {
	opts := testOptions()
	opts.Exclude = append(opts.Exclude, "Brand")

	_, err := BuildSchema(testTable(t), opts)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestBuildSchemaEmpty(t *testing.T) {
	_, err := BuildSchema(&dataset.Table{}, testOptions())
	assert.ErrorIs(t, err, dataset.ErrEmpty)
}

func TestBuildSchemaSkipsEmptyLevels(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"Year", "Region"},
		Rows:    [][]string{{"2018", "Tunis"}, {"2019", ""}, {"2020", "Sfax"}},
	}
	s, err := BuildSchema(table, SchemaOptions{Categorical: []string{"Region"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "Region_Tunis"}, s.Columns())
}

func TestNewSchemaDuplicate(t *testing.T) {
	_, err := NewSchema([]string{"Year", "Year"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestNewSchemaSortsLevels(t *testing.T) {
	s, err := NewSchema([]string{"Brand_Kia"}, []Field{{Name: "Brand", Levels: []string{"Kia", "BMW"}}})
	require.NoError(t, err)
	assert.Equal(t, "BMW", s.Fields()[0].Reference)
}

func TestMatch(t *testing.T) {
	s := testSchema(t)

	assert.NoError(t, s.Match(expectedColumns))
	assert.Error(t, s.Match(expectedColumns[1:]))

	swapped := append([]string(nil), expectedColumns...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.Error(t, s.Match(swapped))
}

func TestColumnsIsCopy(t *testing.T) {
	s := testSchema(t)
	cols := s.Columns()
	cols[0] = "mutated"
	assert.Equal(t, "Driven_KM", s.Columns()[0])
}

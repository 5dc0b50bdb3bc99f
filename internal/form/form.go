// Package form holds the choice lists shown to the user and turns a
// submitted form into a raw feature record.
package form

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/features"
)

// Year bounds accepted by the manufacturing year input
const (
	MinYear     = 1980
	MaxYear     = 2025
	DefaultYear = 2015
)

// Form field names, identical to the dataset column names
const (
	FieldBrand           = "Brand"
	FieldModel           = "Model"
	FieldMileage         = "Driven_KM"
	FieldType            = "Type"
	FieldEngine          = "EngineV"
	FieldFuelType        = "FuelType"
	FieldSafetyFeatures  = "Safety_Features"
	FieldRegion          = "Region"
	FieldYear            = "Year"
	FieldTransmission    = "Transmission"
	FieldAccidentHistory = "Accident_History"
)

// singleChoice lists the select inputs in display order
var singleChoice = []string{
	FieldBrand, FieldModel, FieldType, FieldFuelType, FieldRegion, FieldTransmission, FieldAccidentHistory,
}

// Options are the fixed choice lists of the form
type Options struct {
	Brands          []string `json:"brands"`
	Models          []string `json:"models"`
	Types           []string `json:"types"`
	FuelTypes       []string `json:"fuel_types"`
	Regions         []string `json:"regions"`
	Transmissions   []string `json:"transmissions"`
	SafetyFeatures  []string `json:"safety_features"`
	AccidentHistory []string `json:"accident_history"`
	MinYear         int      `json:"min_year"`
	MaxYear         int      `json:"max_year"`
	DefaultYear     int      `json:"default_year"`
}

// DefaultOptions returns the lists the model was trained on
func DefaultOptions() Options {
	return Options{
		Brands:        []string{"Renault", "Citroën", "Peugeot", "Ford", "Mercedes", "BMW", "Toyota", "Volkswagen", "Hyundai", "Kia"},
		Types:         []string{"SUV", "Hatchback", "Pickup", "Sedan", "Coupe"},
		FuelTypes:     []string{"Petrol", "Electric", "Hybrid", "Diesel"},
		Regions:       []string{"Bizerte", "Sousse", "Gabès", "Tataouine", "Monastir", "Kairouan", "Tozeur", "Sfax", "Nabeul", "Tunis"},
		Transmissions: []string{"Manual", "Automatic"},
		SafetyFeatures: []string{
			"ABS", "Airbags", "ESP", "Lane Assist", "Traction Control", "Blind Spot Monitor",
		},
		AccidentHistory: []string{"Yes", "No"},
		Models: []string{
			"Megane", "C4", "Partner", "Kuga", "C-Class", "7 Series", "E-Class", "Clio", "2008", "C3", "Hilux",
			"Golf", "Berlingo", "Corolla", "Accent", "Rio", "GLC", "X3", "X1", "3008", "3 Series", "Picanto",
			"Passat", "Tucson", "A-Class", "Transit", "Camry", "Sprinter", "Kadjar", "208", "Ranger", "Cerato",
			"5 Series", "Rav4", "Sportage", "Symbol", "C5", "i10", "Elantra", "Jumpy", "Jetta", "Sorento", "308",
			"Focus", "Polo", "Yaris", "Fiesta", "i20", "Tiguan", "Captur",
		},
		MinYear:     MinYear,
		MaxYear:     MaxYear,
		DefaultYear: DefaultYear,
	}
}

// WithOverrides replaces lists that are set in the config
func (o Options) WithOverrides(ov config.FormOverrides) Options {
	pick := func(current, override []string) []string {
		if len(override) > 0 {
			return append([]string(nil), override...)
		}
		return current
	}
	o.Brands = pick(o.Brands, ov.Brands)
	o.Models = pick(o.Models, ov.Models)
	o.Types = pick(o.Types, ov.Types)
	o.FuelTypes = pick(o.FuelTypes, ov.FuelTypes)
	o.Regions = pick(o.Regions, ov.Regions)
	o.Transmissions = pick(o.Transmissions, ov.Transmissions)
	o.SafetyFeatures = pick(o.SafetyFeatures, ov.SafetyFeatures)
	return o
}

// Choices maps each single-choice field to its list
func (o Options) Choices() map[string][]string {
	return map[string][]string{
		FieldBrand:           o.Brands,
		FieldModel:           o.Models,
		FieldType:            o.Types,
		FieldFuelType:        o.FuelTypes,
		FieldRegion:          o.Regions,
		FieldTransmission:    o.Transmissions,
		FieldAccidentHistory: o.AccidentHistory,
	}
}

// Unknown lists choices that the schema has never seen, as field=value
func (o Options) Unknown(s *features.Schema) []string {
	var out []string
	check := func(field string, values []string) {
		for _, v := range values {
			if s.IsCategorical(field) && !s.Known(field, v) {
				out = append(out, fmt.Sprintf("%s=%s", field, v))
			}
		}
	}
	choices := o.Choices()
	for _, field := range singleChoice {
		check(field, choices[field])
	}
	return out
}

// JoinSafety flattens the selected safety features in option order
func (o Options) JoinSafety(selected []string) string {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[strings.TrimSpace(s)] = true
	}
	var parts []string
	for _, opt := range o.SafetyFeatures {
		if chosen[opt] {
			parts = append(parts, opt)
			delete(chosen, opt)
		}
	}
	// anything not in the option list keeps its submitted order
	for _, s := range selected {
		if s = strings.TrimSpace(s); chosen[s] {
			parts = append(parts, s)
			delete(chosen, s)
		}
	}
	return strings.Join(parts, features.MultiValueSeparator)
}

// NormalizeSafety accepts safety features as separate values, as one joined
// string or a mix of both, and joins them like JoinSafety
func (o Options) NormalizeSafety(values ...string) string {
	var selected []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				selected = append(selected, part)
			}
		}
	}
	return o.JoinSafety(selected)
}

// Parse validates a submitted form and builds the raw record.
// Only widget-level constraints are enforced: choices must come from the
// lists, mileage and displacement are non-negative and the year is bounded.
func (o Options) Parse(values url.Values) (features.Record, error) {
	rec := features.Record{}

	choices := o.Choices()
	for _, field := range singleChoice {
		v := strings.TrimSpace(values.Get(field))
		if v == "" {
			return nil, fmt.Errorf("%s is required", field)
		}
		if !contains(choices[field], v) {
			return nil, fmt.Errorf("%s: %q is not one of the available choices", field, v)
		}
		rec[field] = v
	}

	km, err := strconv.Atoi(strings.TrimSpace(values.Get(FieldMileage)))
	if err != nil || km < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", FieldMileage)
	}
	rec[FieldMileage] = km

	engine, err := strconv.ParseFloat(strings.TrimSpace(values.Get(FieldEngine)), 64)
	if err != nil || engine < 0 {
		return nil, fmt.Errorf("%s must be a non-negative number", FieldEngine)
	}
	rec[FieldEngine] = engine

	year, err := strconv.Atoi(strings.TrimSpace(values.Get(FieldYear)))
	if err != nil || year < o.MinYear || year > o.MaxYear {
		return nil, fmt.Errorf("%s must be between %d and %d", FieldYear, o.MinYear, o.MaxYear)
	}
	rec[FieldYear] = year

	for _, s := range values[FieldSafetyFeatures] {
		if !contains(o.SafetyFeatures, strings.TrimSpace(s)) {
			return nil, fmt.Errorf("%s: %q is not one of the available choices", FieldSafetyFeatures, s)
		}
	}
	rec[FieldSafetyFeatures] = o.JoinSafety(values[FieldSafetyFeatures])

	return rec, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

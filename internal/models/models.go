package models

import "github.com/kartoza/car-estimator/internal/features"

// PredictRequest is a raw record keyed by dataset column name.
// Safety_Features may be a string or a list of strings.
type PredictRequest map[string]interface{}

// PredictResponse contains the predicted price category
type PredictResponse struct {
	ID           string            `json:"id"`
	Label        string            `json:"label"`
	DisplayLabel string            `json:"display_label"`
	PriceBand    string            `json:"price_band"`
	Message      string            `json:"message"`
	Unseen       []features.Unseen `json:"unseen,omitempty"`
}

// SchemaResponse describes the feature layout the model expects
type SchemaResponse struct {
	Columns     []string         `json:"columns"`
	Categorical []features.Field `json:"categorical"`
}

// Package estimator runs one encode, align, predict and price-band cycle
// for a submitted car.
package estimator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/features"
	"github.com/kartoza/car-estimator/internal/forest"
	"go.uber.org/zap"
)

// Price band messages
const (
	BandLow    = "Less than 30,000"
	BandMedium = "Between 30,000 and 50,000"
	BandHigh   = "Over 50,000"
)

// Result is the outcome of one estimate. It is never stored.
type Result struct {
	ID           string            `json:"id"`
	Label        string            `json:"label"`
	DisplayLabel string            `json:"display_label"`
	PriceBand    string            `json:"price_band"`
	Currency     string            `json:"currency"`
	Unseen       []features.Unseen `json:"unseen,omitempty"`
}

// Message is the price band followed by the currency
func (r Result) Message() string {
	if r.Currency == "" {
		return r.PriceBand
	}
	return PriceBandIn(r.Label, r.Currency)
}

// Options tune how estimates are produced and displayed
type Options struct {
	UnseenPolicy string
	Currency     string
}

// Estimator combines the reference schema with a predictor.
// It holds no mutable state and can serve concurrent requests.
type Estimator struct {
	schema    *features.Schema
	predictor forest.Predictor
	opts      Options
	logger    *zap.Logger
}

// New creates an estimator. A nil logger discards logs.
func New(schema *features.Schema, predictor forest.Predictor, opts Options, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UnseenPolicy == "" {
		opts.UnseenPolicy = config.UnseenWarn
	}
	return &Estimator{
		schema:    schema,
		predictor: predictor,
		opts:      opts,
		logger:    logger,
	}
}

// Schema returns the reference schema the estimator aligns against
func (e *Estimator) Schema() *features.Schema {
	return e.schema
}

// Classes returns the labels the predictor can produce
func (e *Estimator) Classes() []string {
	return e.predictor.Classes()
}

// Estimate predicts the price category of one raw record
func (e *Estimator) Estimate(rec features.Record) (Result, error) {
	id := uuid.New().String()
	logger := e.logger.With(zap.String("request_id", id))

	aligned, unseen, err := e.schema.Transform(rec)
	if err != nil {
		return Result{}, fmt.Errorf("encode input: %w", err)
	}

	if len(unseen) > 0 {
		switch e.opts.UnseenPolicy {
		case config.UnseenReject:
			return Result{}, fmt.Errorf("%w: %s", features.ErrUnseenCategory, joinUnseen(unseen))
		case config.UnseenWarn:
			logger.Warn("Input contains categories absent from the training data",
				zap.Stringers("unseen", unseen))
		case config.UnseenIgnore:
			unseen = nil
		}
	}

	label, err := e.predictor.Predict(aligned.Values)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}

	result := Result{
		ID:           id,
		Label:        label,
		DisplayLabel: Capitalize(label),
		PriceBand:    PriceBand(label),
		Currency:     e.opts.Currency,
		Unseen:       unseen,
	}
	logger.Debug("Estimate complete", zap.String("label", label))
	return result, nil
}

// PriceBand maps a predicted label to its price band, ignoring case
func PriceBand(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return BandLow
	case "medium":
		return BandMedium
	default:
		return BandHigh
	}
}

// PriceBandIn is PriceBand with the currency after every amount
func PriceBandIn(label, currency string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return fmt.Sprintf("Less than 30,000 %s", currency)
	case "medium":
		return fmt.Sprintf("Between 30,000 %s and 50,000 %s", currency, currency)
	default:
		return fmt.Sprintf("Over 50,000 %s", currency)
	}
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func joinUnseen(unseen []features.Unseen) string {
	parts := make([]string, len(unseen))
	for i, u := range unseen {
		parts[i] = u.String()
	}
	return strings.Join(parts, ", ")
}

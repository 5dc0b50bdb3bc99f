package estimator

import (
	"fmt"
	"time"

	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/dataset"
	"github.com/kartoza/car-estimator/internal/features"
	"github.com/kartoza/car-estimator/internal/forest"
	"go.uber.org/zap"
)

// LoadSchema builds the reference schema from the configured dataset
func LoadSchema(cfg config.Config, logger *zap.Logger) (*features.Schema, error) {
	start := time.Now()

	table, err := dataset.Load(cfg.Data.Path, dataset.Options{
		Delimiter: []rune(cfg.Data.Delimiter)[0],
		Table:     cfg.Data.Table,
	})
	if err != nil {
		return nil, err
	}

	schema, err := features.BuildSchema(table, features.SchemaOptions{
		Exclude:     cfg.Features.Exclude,
		Categorical: cfg.Features.Categorical,
		Target:      cfg.Features.Target,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build feature schema from %s: %w", cfg.Data.Path, err)
	}

	logger.Info("Reference schema built",
		zap.String("dataset", cfg.Data.Path),
		zap.Int("rows", len(table.Rows)),
		zap.Int("features", schema.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return schema, nil
}

// Load wires the dataset, schema and model artifact into an estimator.
// Any failure here is fatal: without them no prediction is possible.
func Load(cfg config.Config, logger *zap.Logger) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	schema, err := LoadSchema(cfg, logger)
	if err != nil {
		return nil, err
	}

	model, err := forest.Load(cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	if err := schema.Match(model.FeatureNames); err != nil {
		return nil, fmt.Errorf("model %s was trained on a different feature layout: %w", cfg.Model.Path, err)
	}

	logger.Info("Model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Any("model", model.Info()))

	return New(schema, model, Options{
		UnseenPolicy: cfg.Features.UnseenPolicy,
		Currency:     cfg.Display.Currency,
	}, logger.Named("estimator")), nil
}

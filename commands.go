package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kartoza/car-estimator/internal/estimator"
	"github.com/kartoza/car-estimator/internal/features"
	"github.com/kartoza/car-estimator/internal/form"
	"github.com/kartoza/car-estimator/internal/models"
	"github.com/spf13/cobra"
)

// newSchemaCmd prints the reference feature layout
func newSchemaCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the reference feature schema",
		Long: `Rebuilds the reference schema from the dataset and prints the ordered
feature columns a model artifact must be trained on, one per line.
No model is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setupLogger(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			schema, err := estimator.LoadSchema(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(models.SchemaResponse{
					Columns:     schema.Columns(),
					Categorical: schema.Fields(),
				})
			}
			for _, c := range schema.Columns() {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schema as JSON")
	return cmd
}

// newPredictCmd runs one estimation from the command line
func newPredictCmd(opts *rootOptions) *cobra.Command {
	var (
		fields []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the price category of one car",
		Long: `Estimates the price category of a single car given as field=value pairs.
Field names are the dataset column names. Safety_Features may be repeated.

Example:
  car-estimator predict --field Brand=Toyota --field Model=Corolla \
    --field Driven_KM=50000 --field Year=2018 \
    --field Safety_Features=ABS --field Safety_Features=Airbags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseFields(fields)
			if err != nil {
				return err
			}

			cfg, est, logger, err := setup(cmd, opts)
			if logger != nil {
				defer logger.Sync()
			}
			if err != nil {
				return err
			}

			options := form.DefaultOptions().WithOverrides(cfg.Form)
			if safety, ok := rec[form.FieldSafetyFeatures].([]string); ok {
				rec[form.FieldSafetyFeatures] = options.NormalizeSafety(safety...)
			}

			result, err := est.Estimate(rec)
			if err != nil {
				return err
			}
			return printResult(cmd, result, asJSON)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "field=value pair (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// parseFields turns field=value pairs into a raw record.
// Safety_Features accumulates into a list, other fields keep the last value.
func parseFields(pairs []string) (features.Record, error) {
	rec := features.Record{}
	var safety []string
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q, want name=value", p)
		}
		if k == form.FieldSafetyFeatures {
			safety = append(safety, strings.TrimSpace(v))
			continue
		}
		rec[k] = strings.TrimSpace(v)
	}
	if len(safety) > 0 {
		rec[form.FieldSafetyFeatures] = safety
	}
	return rec, nil
}

func printResult(cmd *cobra.Command, result estimator.Result, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.PredictResponse{
			ID:           result.ID,
			Label:        result.Label,
			DisplayLabel: result.DisplayLabel,
			PriceBand:    result.PriceBand,
			Message:      result.Message(),
			Unseen:       result.Unseen,
		})
	}

	fmt.Fprintf(out, "Predicted price category: %s\n", result.DisplayLabel)
	fmt.Fprintf(out, "Estimated price: %s\n", result.Message())
	for _, u := range result.Unseen {
		fmt.Fprintf(out, "Not seen in the training data: %s\n", u)
	}
	return nil
}

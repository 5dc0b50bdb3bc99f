package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/estimator"
	"github.com/kartoza/car-estimator/internal/features"
	"github.com/kartoza/car-estimator/internal/form"
	"github.com/kartoza/car-estimator/internal/httputil"
	"github.com/kartoza/car-estimator/internal/models"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a predict request body
const maxBodyBytes = 64 << 10

// Handler provides HTTP API endpoints
type Handler struct {
	estimator *estimator.Estimator
	options   form.Options
	cfg       config.Config
	logger    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	est *estimator.Estimator,
	options form.Options,
	cfg config.Config,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		estimator: est,
		options:   options,
		cfg:       cfg,
		logger:    logger,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Form and feature layout
	r.HandleFunc("/options", h.handleOptions).Methods("GET")
	r.HandleFunc("/schema", h.handleSchema).Methods("GET")

	r.HandleFunc("/predict", h.handlePredict).Methods("POST")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":       h.cfg.Version,
		"dataset":       h.cfg.Data.Path,
		"model":         h.cfg.Model.Path,
		"unseen_policy": h.cfg.Features.UnseenPolicy,
		"model_loaded":  h.estimator != nil,
	}
	if h.estimator != nil {
		info["features"] = h.estimator.Schema().Len()
		info["classes"] = h.estimator.Classes()
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleOptions returns the form choice lists
func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.options)
}

// handleSchema returns the reference feature schema
func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	if h.estimator == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "estimator not loaded")
		return
	}
	schema := h.estimator.Schema()
	httputil.RespondJSON(w, http.StatusOK, models.SchemaResponse{
		Columns:     schema.Columns(),
		Categorical: schema.Fields(),
	})
}

// handlePredict estimates the price category of one car
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.estimator == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "estimator not loaded")
		return
	}

	var req models.PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.toRecord(req)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.estimator.Estimate(rec)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Prediction failed", zap.Error(err))
		}
		httputil.RespondError(w, status, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.PredictResponse{
		ID:           result.ID,
		Label:        result.Label,
		DisplayLabel: result.DisplayLabel,
		PriceBand:    result.PriceBand,
		Message:      result.Message(),
		Unseen:       result.Unseen,
	})
}

// toRecord flattens a multi-choice list into its single categorical value.
// Safety features are normalised whether they arrive as a list or a string.
func (h *Handler) toRecord(req models.PredictRequest) (features.Record, error) {
	rec := make(features.Record, len(req))
	for k, v := range req {
		var selected []string
		switch val := v.(type) {
		case []interface{}:
			selected = make([]string, 0, len(val))
			for _, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, errors.New(k + ": list items must be strings")
				}
				selected = append(selected, s)
			}
		case string:
			if k != form.FieldSafetyFeatures {
				rec[k] = val
				continue
			}
			selected = []string{val}
		default:
			rec[k] = v
			continue
		}

		if k == form.FieldSafetyFeatures {
			rec[k] = h.options.NormalizeSafety(selected...)
		} else {
			rec[k] = selected
		}
	}
	return rec, nil
}

// StatusFor maps an estimate error to an HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, features.ErrUnseenCategory), errors.Is(err, features.ErrValueType):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/car-estimator/internal/api"
	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/estimator"
	"github.com/kartoza/car-estimator/internal/form"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	estimator  *estimator.Estimator
	options    form.Options
	page       *template.Template
	logger     *zap.Logger
}

// pageData is rendered by the form template
type pageData struct {
	Version string
	Options form.Options
	Values  url.Values
	Result  *estimator.Result
	Message string
	Error   string
}

// New creates a new Server with all components initialized
func New(cfg config.Config, est *estimator.Estimator, options form.Options, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	page, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse form template: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		router:    mux.NewRouter(),
		estimator: est,
		options:   options,
		page:      page,
		logger:    logger,
	}

	// Set up routes
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.estimator, s.options, s.cfg, s.logger.Named("api"))
	apiHandler.RegisterRoutes(apiRouter)

	// Estimation form
	s.router.HandleFunc("/", s.handleForm).Methods("GET")
	s.router.HandleFunc("/", s.handleSubmit).Methods("POST")
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleForm renders an empty form
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

// handleSubmit estimates the submitted car and renders the result below the form
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.estimator == nil {
		s.render(w, http.StatusServiceUnavailable, pageData{Error: "The estimator is not loaded"})
		return
	}

	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, pageData{Error: "Invalid form submission"})
		return
	}

	data := pageData{Values: r.PostForm}

	rec, err := s.options.Parse(r.PostForm)
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, data)
		return
	}

	result, err := s.estimator.Estimate(rec)
	if err != nil {
		status := api.StatusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Prediction failed", zap.Error(err))
			data.Error = "The estimate could not be computed"
		} else {
			data.Error = err.Error()
		}
		s.render(w, status, data)
		return
	}

	data.Result = &result
	data.Message = result.Message()
	s.render(w, http.StatusOK, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Version = s.cfg.Version
	data.Options = s.options

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Warn("Error rendering form", zap.Error(err))
	}
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.logger.Info("Server listening", zap.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port)))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request at debug level
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

var templateFuncs = template.FuncMap{
	"selected": func(values url.Values, field, option string) bool {
		return values.Get(field) == option
	},
	"checked": func(values url.Values, field, option string) bool {
		for _, v := range values[field] {
			if v == option {
				return true
			}
		}
		return false
	},
	"valueOr": func(values url.Values, field string, fallback int) string {
		if v := values.Get(field); v != "" {
			return v
		}
		return strconv.Itoa(fallback)
	},
}

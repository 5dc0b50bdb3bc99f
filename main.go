package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartoza/car-estimator/internal/config"
	"github.com/kartoza/car-estimator/internal/estimator"
	"github.com/kartoza/car-estimator/internal/form"
	"github.com/kartoza/car-estimator/internal/logging"
	"github.com/kartoza/car-estimator/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath string
	verbose    bool
	port       int
	dataPath   string
	modelPath  string
	headless   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running without a subcommand serves the form.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "car-estimator",
		Short: "Estimate the price category of a used car",
		Long: `car-estimator predicts the price category of a used car from its
characteristics with a pre-trained random forest.

The reference feature layout is rebuilt at startup from the historical
dataset, so that a single record can be one-hot encoded and aligned exactly
like the training data.

Run without arguments to start the web form.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultConfigFile+" if present)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.IntVar(&opts.port, "port", 8080, "HTTP server port")
	flags.StringVar(&opts.dataPath, "data", "", "reference dataset (CSV or SQLite)")
	flags.StringVar(&opts.modelPath, "model", "", "serialized random forest")
	flags.BoolVar(&opts.headless, "headless", false, "run in headless mode (no GUI window)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimation form and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	rootCmd.AddCommand(serveCmd, newSchemaCmd(opts), newPredictCmd(opts))
	return rootCmd
}

// loadConfig resolves the config file, then flags, then the environment
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	path, optional := opts.configPath, false
	if path == "" {
		path, optional = config.DefaultConfigFile, true
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("data") {
		cfg.Data.Path = opts.dataPath
	}
	if flags.Changed("model") {
		cfg.Model.Path = opts.modelPath
	}
	if flags.Changed("headless") {
		cfg.Server.Headless = opts.headless
	}
	cfg.ApplyEnv()
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger loads the config and builds the logger
func setupLogger(cmd *cobra.Command, opts *rootOptions) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return cfg, nil, err
	}

	logger, err := logging.New(cfg.Logging, opts.verbose)
	if err != nil {
		return cfg, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// setup loads the config and builds the logger and the estimator.
// Any error here is fatal for the command.
func setup(cmd *cobra.Command, opts *rootOptions) (config.Config, *estimator.Estimator, *zap.Logger, error) {
	cfg, logger, err := setupLogger(cmd, opts)
	if err != nil {
		return cfg, nil, logger, err
	}

	est, err := estimator.Load(cfg, logger)
	if err != nil {
		logger.Error("Failed to load estimator", zap.Error(err))
		return cfg, nil, logger, err
	}
	return cfg, est, logger, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, est, logger, err := setup(cmd, opts)
	if logger != nil {
		defer logger.Sync()
	}
	if err != nil {
		return err
	}

	options := form.DefaultOptions().WithOverrides(cfg.Form)
	if unknown := options.Unknown(est.Schema()); len(unknown) > 0 {
		logger.Warn("Form choices absent from the training data", zap.Strings("choices", unknown))
	}

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(cfg.Server.Port, 10)
	if err != nil {
		return fmt.Errorf("failed to find available port: %w", err)
	}
	if availablePort != cfg.Server.Port {
		logger.Info("Requested port in use",
			zap.Int("requested", cfg.Server.Port),
			zap.Int("port", availablePort))
		cfg.Server.Port = availablePort
	}

	logger.Info("Car estimator starting",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("dataset", cfg.Data.Path),
		zap.String("model", cfg.Model.Path))

	srv, err := server.New(cfg, est, options, logger.Named("server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	waitForServer(serverURL, 10*time.Second, logger)

	var serveErr error
	if cfg.Server.Headless {
		serveErr = waitForShutdown(errCh, stop, logger)
	} else {
		serveErr = runWindow(serverURL, errCh, stop, logger)
	}

	logger.Info("Shutting down server")
	if err := srv.Stop(); err != nil {
		logger.Warn("Error during shutdown", zap.Error(err))
	}
	return serveErr
}

// waitForShutdown blocks until the server fails or a signal arrives
func waitForShutdown(errCh <-chan error, stop <-chan os.Signal, logger *zap.Logger) error {
	return watchServer(errCh, stop, nil, func() {}, logger)
}

// watchServer blocks until the server fails, a signal arrives or done is
// closed. terminate runs only on a signal. http.ErrServerClosed is the
// normal result of Stop and is not reported.
func watchServer(errCh <-chan error, stop <-chan os.Signal, done <-chan struct{}, terminate func(), logger *zap.Logger) error {
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", zap.Error(err))
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-stop:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		terminate()
	case <-done:
	}
	return nil
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration, logger *zap.Logger) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Warn("Server may not be ready", zap.String("url", url))
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}

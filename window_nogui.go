//go:build nogui

package main

import (
	"os"

	"go.uber.org/zap"
)

// runWindow falls back to headless mode in builds without WebView support
func runWindow(serverURL string, errCh <-chan error, stop <-chan os.Signal, logger *zap.Logger) error {
	logger.Warn("Built without desktop window support, running headless", zap.String("url", serverURL))
	return waitForShutdown(errCh, stop, logger)
}

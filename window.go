//go:build !nogui

package main

import (
	"os"

	webview "github.com/webview/webview_go"
	"go.uber.org/zap"
)

// runWindow opens the form in an embedded WebView and blocks until the
// window is closed. A signal closes the window; a server failure is
// returned once the window is gone.
func runWindow(serverURL string, errCh <-chan error, stop <-chan os.Signal, logger *zap.Logger) error {
	logger.Info("Opening application window")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Car Price Estimator")
	w.SetSize(720, 900, webview.HintNone)
	w.Navigate(serverURL)

	done := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- watchServer(errCh, stop, done, w.Terminate, logger)
	}()

	// Run blocks until the window is closed
	w.Run()
	close(done)

	// the watcher must be finished before Destroy
	err := <-result
	logger.Info("Window closed")
	return err
}

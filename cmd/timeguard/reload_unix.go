//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/daemon"
)

// notifyReload forwards SIGHUP to the watcher as a reload request.
// The returned function stops forwarding.
func notifyReload(w *daemon.Watcher, logger *zap.Logger) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigChan:
				logger.Info("received SIGHUP, scheduling rules reload")
				w.RequestReload()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

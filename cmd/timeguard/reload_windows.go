//go:build windows

package main

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/daemon"
)

// notifyReload is a no-op on Windows, which has no SIGHUP; rules are still
// reloaded when the file changes if reload_on_change is set.
func notifyReload(w *daemon.Watcher, logger *zap.Logger) func() {
	return func() {}
}

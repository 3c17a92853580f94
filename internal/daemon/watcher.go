// Package daemon implements the polling control loop.
package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
	"github.com/eliteGoblin/focusd/timeguard/internal/policy"
)

// DefaultCheckInterval is used when the config file does not set one.
const DefaultCheckInterval = 60 * time.Second

// State is the control loop state.
type State int32

const (
	// StateIdle means the loop is sleeping until the next scan.
	StateIdle State = iota
	// StateScanning means a scan is in progress.
	StateScanning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// RuleStore is the RuleSet holder the watcher reads from and reloads.
// Implementation: policy.Store.
type RuleStore interface {
	domain.RuleProvider
	Reload() ([]policy.Warning, error)
	Changed() (bool, error)
}

// WatcherConfig holds watcher daemon configuration.
type WatcherConfig struct {
	CheckInterval  time.Duration // Time between scans
	ReloadOnChange bool          // Reload rules when the file modification time changes
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		CheckInterval:  DefaultCheckInterval,
		ReloadOnChange: true,
	}
}

// Watcher is the enforcement daemon. It alternates between sleeping and
// scanning; a scan always sees one RuleSet because reloads are only applied
// before the scan starts.
type Watcher struct {
	config  WatcherConfig
	store   RuleStore
	scanner domain.Scanner
	clock   func() time.Time
	logger  *zap.Logger

	reload        chan struct{}
	reloadPending bool // owned by the Run goroutine
	state         atomic.Int32
	lastResult    atomic.Pointer[domain.ScanResult]
	scans         atomic.Int64
}

// NewWatcher creates a new watcher daemon.
func NewWatcher(
	config WatcherConfig,
	store RuleStore,
	scanner domain.Scanner,
	logger *zap.Logger,
) *Watcher {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCheckInterval
	}
	return &Watcher{
		config:  config,
		store:   store,
		scanner: scanner,
		clock:   time.Now,
		logger:  logger,
		reload:  make(chan struct{}, 1),
	}
}

// SetClock overrides the time source used to evaluate rules (for testing).
func (w *Watcher) SetClock(clock func() time.Time) {
	w.clock = clock
}

// State returns the current loop state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// LastResult returns the most recent successful scan result, or nil.
func (w *Watcher) LastResult() *domain.ScanResult {
	return w.lastResult.Load()
}

// Scans returns how many scans have been attempted.
func (w *Watcher) Scans() int64 {
	return w.scans.Load()
}

// RequestReload asks the loop to reload the rules before its next scan.
// Safe to call from any goroutine; repeated requests collapse into one.
func (w *Watcher) RequestReload() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

// Run starts the watcher daemon loop. The first scan runs immediately.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.store.Current() == nil {
		return policy.ErrNotLoaded
	}

	w.logger.Info("watcher daemon started",
		zap.Duration("check_interval", w.config.CheckInterval),
		zap.Bool("reload_on_change", w.config.ReloadOnChange))

	w.runScan(ctx)

	timer := time.NewTimer(w.config.CheckInterval)
	defer timer.Stop()

	for {
		w.state.Store(int32(StateIdle))

		select {
		case <-ctx.Done():
			w.logger.Info("watcher daemon stopping")
			return ctx.Err()

		case <-w.reload:
			w.logger.Info("rules reload requested, applying before next scan")
			w.reloadPending = true

		case <-timer.C:
			w.runScan(ctx)
			timer.Reset(w.config.CheckInterval)
		}
	}
}

// runScan performs one SCANNING pass.
func (w *Watcher) runScan(ctx context.Context) {
	w.state.Store(int32(StateScanning))
	w.scans.Add(1)

	w.applyReload()

	rules := w.store.Current()
	result, err := w.scanner.Scan(ctx, rules, w.clock())
	if err != nil {
		var lerr *domain.LookupError
		if errors.As(err, &lerr) {
			w.logger.Warn("process lookup failed, retrying next cycle", zap.Error(err))
		} else {
			w.logger.Error("scan failed", zap.Error(err))
		}
		return
	}
	w.lastResult.Store(result)

	if len(result.Killed) > 0 || len(result.Errors) > 0 {
		w.logger.Info("scan completed",
			zap.String("scan_id", result.ScanID),
			zap.Int("processes_checked", result.Checked),
			zap.Int("processes_killed", len(result.Killed)),
			zap.Int("errors", len(result.Errors)))
	} else {
		w.logger.Debug("scan completed",
			zap.String("scan_id", result.ScanID),
			zap.Int("processes_checked", result.Checked),
			zap.Int("processes_managed", result.Managed))
	}
}

// applyReload reloads the rules if a reload was requested or the source
// changed. A failed reload keeps the previous RuleSet.
func (w *Watcher) applyReload() {
	want := w.reloadPending
	if !want && w.config.ReloadOnChange {
		changed, err := w.store.Changed()
		if err != nil {
			w.logger.Warn("failed to check rules for changes", zap.Error(err))
		}
		want = changed
	}
	if !want {
		return
	}
	w.reloadPending = false

	if _, err := w.store.Reload(); err != nil {
		w.logger.Warn("rules reload failed, previous rules remain in effect", zap.Error(err))
		return
	}
	w.logger.Info("rules reloaded", zap.Int("rules", w.store.Current().Len()))
}

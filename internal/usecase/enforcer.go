package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// DefaultKillTimeout bounds a single termination request.
const DefaultKillTimeout = 5 * time.Second

// EnforcerConfig holds scan options.
type EnforcerConfig struct {
	KillTimeout time.Duration // per-process termination timeout
	DryRun      bool          // record kills without terminating anything
}

// EnforcerImpl implements domain.Scanner.
type EnforcerImpl struct {
	config         EnforcerConfig
	processManager domain.ProcessManager
	logger         *zap.Logger
}

// NewEnforcer creates a new scanner that kills processes outside their windows.
func NewEnforcer(pm domain.ProcessManager, logger *zap.Logger) domain.Scanner {
	return NewEnforcerWithConfig(EnforcerConfig{KillTimeout: DefaultKillTimeout}, pm, logger)
}

// NewEnforcerWithConfig creates a scanner with explicit options.
func NewEnforcerWithConfig(config EnforcerConfig, pm domain.ProcessManager, logger *zap.Logger) domain.Scanner {
	if config.KillTimeout <= 0 {
		config.KillTimeout = DefaultKillTimeout
	}
	return &EnforcerImpl{
		config:         config,
		processManager: pm,
		logger:         logger,
	}
}

// Scan runs one pass over the live process list against a single RuleSet
// snapshot. Only a failed process listing is returned as an error
// (*domain.LookupError); termination failures are collected in the result.
func (e *EnforcerImpl) Scan(ctx context.Context, rules *domain.RuleSet, now time.Time) (*domain.ScanResult, error) {
	start := time.Now()
	result := &domain.ScanResult{
		ScanID:     uuid.New().String(),
		Killed:     make([]domain.KilledProcess, 0),
		Errors:     make([]error, 0),
		DryRun:     e.config.DryRun,
		ExecutedAt: now,
	}
	logger := e.logger.With(zap.String("scan_id", result.ScanID))

	procs, err := e.processManager.List(ctx)
	if err != nil {
		return nil, &domain.LookupError{Err: err}
	}

	at := domain.InstantOf(now)
	self := e.processManager.GetCurrentPID()

	for _, p := range procs {
		if ctx.Err() != nil {
			break
		}
		result.Checked++
		if p.PID == self {
			continue
		}

		verdict := Evaluate(rules, p.Name, at)
		switch verdict.Decision {
		case domain.Unmanaged:
			continue
		case domain.Allow:
			result.Managed++
			result.Allowed++
			continue
		}
		result.Managed++

		if e.config.DryRun {
			logger.Info("would kill process",
				zap.String("process", p.Name),
				zap.Int("pid", p.PID),
				zap.String("at", at.String()))
			result.Killed = append(result.Killed, domain.KilledProcess{PID: p.PID, Name: p.Name})
			continue
		}

		if err := e.kill(ctx, p.PID); err != nil {
			terr := &domain.TerminationError{PID: p.PID, Name: p.Name, Err: err}
			if terr.Vanished() {
				logger.Debug("process exited before kill",
					zap.String("process", p.Name),
					zap.Int("pid", p.PID))
			} else {
				logger.Warn("failed to kill process",
					zap.String("process", p.Name),
					zap.Int("pid", p.PID),
					zap.Error(err))
			}
			result.Errors = append(result.Errors, terr)
			continue
		}

		logger.Info("killed process",
			zap.String("process", p.Name),
			zap.Int("pid", p.PID),
			zap.String("at", at.String()))
		result.Killed = append(result.Killed, domain.KilledProcess{PID: p.PID, Name: p.Name})
	}

	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// kill runs a termination request bounded by the kill timeout. A call that
// does not return in time is abandoned and reported as domain.ErrKillTimeout;
// if the scan itself is canceled first, the parent context error is returned.
func (e *EnforcerImpl) kill(ctx context.Context, pid int) error {
	killCtx, cancel := context.WithTimeout(ctx, e.config.KillTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.processManager.Kill(killCtx, pid)
	}()

	select {
	case err := <-done:
		return err
	case <-killCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return domain.ErrKillTimeout
	}
}

// Ensure EnforcerImpl implements domain.Scanner.
var _ domain.Scanner = (*EnforcerImpl)(nil)

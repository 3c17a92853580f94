package domain

import (
	"context"
	"time"
)

// ProcessManager handles OS process operations.
// Implementations: gopsutil (default) and go-ps.
type ProcessManager interface {
	// List returns a snapshot of running processes with their names.
	List(ctx context.Context) ([]Process, error)

	// Kill terminates a process by PID (SIGKILL on Unix).
	Kill(ctx context.Context, pid int) error

	// GetCurrentPID returns the current process PID.
	GetCurrentPID() int
}

// RuleSource provides the raw rules text.
// Implementation: a file on disk, read-only.
type RuleSource interface {
	// Name identifies the source in logs and errors (usually the path).
	Name() string

	// Read returns the full rules text.
	Read() ([]byte, error)

	// ModTime returns the last modification time, for change detection.
	ModTime() (time.Time, error)
}

// RuleProvider hands out the current RuleSet snapshot.
type RuleProvider interface {
	// Current returns the RuleSet in effect. Never nil once loaded.
	Current() *RuleSet
}

// Scanner runs one enforcement pass over the live process list.
type Scanner interface {
	Scan(ctx context.Context, rules *RuleSet, now time.Time) (*ScanResult, error)
}

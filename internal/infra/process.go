// Package infra implements infrastructure concerns (processes, files, config, service).
package infra

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// Process backends selectable through config or --backend.
const (
	BackendGopsutil = "gopsutil"
	BackendPS       = "ps"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// NewProcessManagerForBackend returns the process manager for a backend name.
func NewProcessManagerForBackend(backend string) (domain.ProcessManager, error) {
	switch backend {
	case "", BackendGopsutil:
		return NewProcessManager(), nil
	case BackendPS:
		return NewPSProcessManager(), nil
	default:
		return nil, fmt.Errorf("unknown process backend %q (want %s or %s)", backend, BackendGopsutil, BackendPS)
	}
}

// List returns all processes whose name could be read.
func (pm *ProcessManagerImpl) List(ctx context.Context) ([]domain.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // Process may have exited
		}
		result = append(result, domain.Process{PID: int(p.Pid), Name: name})
	}
	return result, nil
}

// Kill terminates a process by PID using SIGKILL.
func (pm *ProcessManagerImpl) Kill(ctx context.Context, pid int) error {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return os.ErrProcessDone
		}
		return err
	}
	return p.KillWithContext(ctx)
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)

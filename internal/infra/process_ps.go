package infra

import (
	"context"
	"os"
	"strings"

	ps "github.com/mitchellh/go-ps"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// commLen is the length at which the kernel truncates process names
// (TASK_COMM_LEN - 1 on Linux, MAXCOMLEN on the BSDs).
const commLen = 15

// PSProcessManager implements domain.ProcessManager with go-ps for listing
// and a platform signal for termination. go-ps reports the kernel command
// name, which is truncated to 15 characters on Linux and macOS; such names
// are completed from the process command line.
type PSProcessManager struct{}

// NewPSProcessManager creates the go-ps backed process manager.
func NewPSProcessManager() domain.ProcessManager {
	return &PSProcessManager{}
}

// List returns all running processes.
func (pm *PSProcessManager) List(ctx context.Context) ([]domain.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	procs, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	result := make([]domain.Process, 0, len(procs))
	for _, p := range procs {
		result = append(result, domain.Process{PID: p.Pid(), Name: fullName(ctx, p.Pid(), p.Executable())})
	}
	return result, nil
}

// fullName returns the untruncated name for a possibly truncated short name.
// gopsutil completes it from the first command line argument when that
// starts with short; otherwise short is returned unchanged.
func fullName(ctx context.Context, pid int, short string) string {
	if len(short) < commLen {
		return short
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return short
	}
	name, err := p.NameWithContext(ctx)
	if err != nil || !strings.HasPrefix(name, short) {
		return short
	}
	return name
}

// Kill terminates a process by PID.
func (pm *PSProcessManager) Kill(ctx context.Context, pid int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return killPID(pid)
}

// GetCurrentPID returns the current process PID.
func (pm *PSProcessManager) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure PSProcessManager implements domain.ProcessManager.
var _ domain.ProcessManager = (*PSProcessManager)(nil)

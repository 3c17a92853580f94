//go:build !windows

package infra

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// killPID sends SIGKILL to pid.
func killPID(pid int) error {
	err := unix.Kill(pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

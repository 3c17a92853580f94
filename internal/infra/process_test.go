//go:build !windows

package infra

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

func startSleeper(t *testing.T, path string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(path, "60")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return cmd
}

// copySleep copies the sleep binary to dir under name.
func copySleep(t *testing.T, dir, name string) string {
	t.Helper()
	src, err := exec.LookPath("sleep")
	require.NoError(t, err)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(dst, data, 0755))
	return dst
}

func findPID(procs []domain.Process, pid int) (domain.Process, bool) {
	for _, p := range procs {
		if p.PID == pid {
			return p, true
		}
	}
	return domain.Process{}, false
}

func TestProcessManagers_ListAndKill(t *testing.T) {
	tests := []struct {
		backend string
		name    string
	}{
		{BackendGopsutil, "tg-sleep"},
		{BackendGopsutil, "timeguard-long-process-name"},
		{BackendPS, "tg-sleep"},
		{BackendPS, "timeguard-long-process-name"},
	}

	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.name, func(t *testing.T) {
			pm, err := NewProcessManagerForBackend(tt.backend)
			require.NoError(t, err)
			ctx := context.Background()

			cmd := startSleeper(t, copySleep(t, t.TempDir(), tt.name))
			pid := cmd.Process.Pid

			procs, err := pm.List(ctx)
			require.NoError(t, err)
			p, ok := findPID(procs, pid)
			require.True(t, ok, "child process should be listed")
			assert.Equal(t, tt.name, p.Name)

			_, ok = findPID(procs, pm.GetCurrentPID())
			assert.True(t, ok, "own process should be listed")

			require.NoError(t, pm.Kill(ctx, pid))
			err = cmd.Wait()
			assert.Error(t, err, "sleep should exit by signal")

			err = pm.Kill(ctx, pid)
			assert.ErrorIs(t, err, os.ErrProcessDone)
		})
	}
}

func TestNewProcessManagerForBackend(t *testing.T) {
	pm, err := NewProcessManagerForBackend("")
	require.NoError(t, err)
	assert.IsType(t, &ProcessManagerImpl{}, pm)

	pm, err = NewProcessManagerForBackend(BackendPS)
	require.NoError(t, err)
	assert.IsType(t, &PSProcessManager{}, pm)

	_, err = NewProcessManagerForBackend("wmi")
	assert.ErrorContains(t, err, "unknown process backend")
}

func TestPSProcessManager_CanceledContext(t *testing.T) {
	pm := NewPSProcessManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pm.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, pm.Kill(ctx, 1), context.Canceled)
}

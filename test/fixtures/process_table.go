// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"os"
	"sort"
	"sync"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// selfPID is the PID the fake table reports for the daemon itself.
const selfPID = 1

// FakeProcessTable is an in-memory process table implementing
// domain.ProcessManager. Killing a PID removes it from the table.
type FakeProcessTable struct {
	mu      sync.Mutex
	nextPID int
	procs   map[int]string
	kills   int
}

// NewFakeProcessTable creates an empty table. PID 1 is reserved for the
// daemon and is always listed under the given name.
func NewFakeProcessTable(selfName string) *FakeProcessTable {
	return &FakeProcessTable{
		nextPID: selfPID + 1,
		procs:   map[int]string{selfPID: selfName},
	}
}

// Spawn adds a process and returns its PID.
func (f *FakeProcessTable) Spawn(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	pid := f.nextPID
	f.nextPID++
	f.procs[pid] = name
	return pid
}

// Running returns how many processes named name are in the table.
func (f *FakeProcessTable) Running(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.procs {
		if p == name {
			n++
		}
	}
	return n
}

// Kills returns the number of successful kills.
func (f *FakeProcessTable) Kills() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kills
}

// List returns the table sorted by PID.
func (f *FakeProcessTable) List(ctx context.Context) ([]domain.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Process, 0, len(f.procs))
	for pid, name := range f.procs {
		out = append(out, domain.Process{PID: pid, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// Kill removes pid from the table.
func (f *FakeProcessTable) Kill(ctx context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.procs[pid]; !ok {
		return os.ErrProcessDone
	}
	delete(f.procs, pid)
	f.kills++
	return nil
}

// GetCurrentPID returns the daemon's fake PID.
func (f *FakeProcessTable) GetCurrentPID() int {
	return selfPID
}

var _ domain.ProcessManager = (*FakeProcessTable)(nil)

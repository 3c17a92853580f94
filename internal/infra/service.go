package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

const serviceStopTimeout = 10 * time.Second

// ServiceProgram adapts a blocking run function to service.Interface so the
// daemon can run under launchd, systemd or the Windows service manager, and
// in the foreground with signal handling.
type ServiceProgram struct {
	run    func(ctx context.Context) error
	logger *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewServiceProgram wraps run. run must return once its context is canceled.
func NewServiceProgram(run func(ctx context.Context) error, logger *zap.Logger) *ServiceProgram {
	return &ServiceProgram{run: run, logger: logger}
}

// Start launches the run function in the background.
func (p *ServiceProgram) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		err := p.run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("daemon exited with error", zap.Error(err))
			os.Exit(1)
		}
	}()
	return nil
}

// Stop cancels the run function and waits for it to return.
func (p *ServiceProgram) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		return nil
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("daemon did not stop within %s", serviceStopTimeout)
	}
}

// NewService builds the OS service definition. The service runs
// `timeguard run --dir <paths.Dir>`; non-root installs are per-user services.
func NewService(prg service.Interface, paths *Paths) (service.Service, error) {
	cfg := &service.Config{
		Name:        appName,
		DisplayName: "timeguard",
		Description: "Kills processes outside their allowed time windows.",
		Arguments:   []string{"run", "--dir", paths.Dir},
		Option: service.KeyValue{
			"UserService": !paths.IsRoot,
		},
	}
	return service.New(prg, cfg)
}

// ControlService performs install, uninstall, start, stop or restart.
func ControlService(s service.Service, action string) error {
	if !slices.Contains(service.ControlAction[:], action) {
		return fmt.Errorf("unknown service action %q (want one of %v)", action, service.ControlAction)
	}
	return service.Control(s, action)
}

// Ensure ServiceProgram implements service.Interface.
var _ service.Interface = (*ServiceProgram)(nil)

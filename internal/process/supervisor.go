// Package process manages the lifecycle of the single supervised command.
package process

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
)

// ReloadMethod names how a Reload was delivered.
type ReloadMethod string

const (
	ReloadCommand ReloadMethod = "command" // the configured reload command ran
	ReloadSignal  ReloadMethod = "signal"  // SIGHUP was sent to the live child
	ReloadRestart ReloadMethod = "restart" // the dead child was started fresh
)

// Supervisor owns the single supervised child process. It is the only
// component that starts, signals, or terminates it.
type Supervisor struct {
	command       string
	reloadCommand string
	spawner       Spawner
	runner        Runner
	logger        *slog.Logger

	mu     sync.Mutex
	child  Child
	exited chan struct{} // closed by the reaper goroutine
}

// NewSupervisor creates a supervisor for the given command line.
func NewSupervisor(command, reloadCommand string, spawner Spawner, runner Runner, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		command:       command,
		reloadCommand: reloadCommand,
		spawner:       spawner,
		runner:        runner,
		logger:        logger,
	}
}

// Start launches the supervised command and records its handle. Callers
// must check Alive first; a Dead handle is replaced.
func (s *Supervisor) Start() error {
	name, args := SplitCommand(s.command)
	if name == "" {
		return fmt.Errorf("supervised command is empty")
	}

	child, err := s.spawner.Spawn(SpawnConfig{
		Command: name,
		Args:    args,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("start %q: %w", s.command, err)
	}

	exited := make(chan struct{})
	s.mu.Lock()
	s.child = child
	s.exited = exited
	s.mu.Unlock()

	s.logger.Info("command started", "command", s.command, "pid", child.Pid())

	// Reap the child so liveness checks never block.
	go func() {
		_ = child.Wait()
		close(exited)
	}()

	return nil
}

// Alive reports whether a handle exists and the process has not exited.
// Never blocks.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Pid returns the child PID, or 0 when no handle exists.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child == nil {
		return 0
	}
	return s.child.Pid()
}

// Reload applies a freshly committed configuration. With a reload command
// configured it always runs, even when the child is dead; its exit status
// is informational only. Without one, a live child gets SIGHUP and a dead
// child is started fresh.
func (s *Supervisor) Reload() (ReloadMethod, error) {
	if s.reloadCommand != "" {
		s.logger.Info("executing reload command", "command", s.reloadCommand)
		if err := s.runner.Run(s.reloadCommand, false); err != nil {
			s.logger.Warn("reload command exited non-zero", "error", err)
		}
		return ReloadCommand, nil
	}

	if !s.Alive() {
		s.logger.Info("command dead, restarting")
		return ReloadRestart, s.Start()
	}

	s.mu.Lock()
	child := s.child
	s.mu.Unlock()

	s.logger.Info("sending HUP signal", "pid", child.Pid())
	return ReloadSignal, child.Signal(syscall.SIGHUP)
}

// Terminate force-kills the child if present and clears the handle.
// Used at shutdown.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	child := s.child
	s.child = nil
	s.mu.Unlock()

	if child == nil {
		return
	}
	s.logger.Info("killing command", "pid", child.Pid())
	_ = child.Kill()
}

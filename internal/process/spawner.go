package process

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// SpawnConfig holds the parameters needed to spawn the supervised command.
type SpawnConfig struct {
	Command string    // absolute path or $PATH-resolved binary
	Args    []string  // command arguments (not including argv[0])
	Stdout  io.Writer // stdout destination (nil = discard)
	Stderr  io.Writer // stderr destination (nil = discard)
}

// Child represents a running supervised process.
type Child interface {
	Pid() int
	Signal(os.Signal) error
	Kill() error
	Wait() error // blocks until the process exits
}

// Spawner creates child processes. Implementations include
// ExecSpawner (real) and MockSpawner (testing).
type Spawner interface {
	Spawn(cfg SpawnConfig) (Child, error)
}

// ExecSpawner spawns real OS processes via os/exec.
type ExecSpawner struct{}

type execChild struct {
	cmd *exec.Cmd
}

// Spawn starts a real child process with the given config.
func (s *ExecSpawner) Spawn(cfg SpawnConfig) (Child, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr

	// Own process group so signals aimed at the daemon don't leak in.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execChild{cmd: cmd}, nil
}

func (c *execChild) Pid() int { return c.cmd.Process.Pid }

func (c *execChild) Signal(sig os.Signal) error { return c.cmd.Process.Signal(sig) }

func (c *execChild) Kill() error { return c.cmd.Process.Kill() }

func (c *execChild) Wait() error { return c.cmd.Wait() }

// MockSpawner is a test double for Spawner.
type MockSpawner struct {
	SpawnFn    func(cfg SpawnConfig) (Child, error)
	SpawnCalls []SpawnConfig
}

// Spawn records the call and delegates to SpawnFn.
func (m *MockSpawner) Spawn(cfg SpawnConfig) (Child, error) {
	m.SpawnCalls = append(m.SpawnCalls, cfg)
	if m.SpawnFn != nil {
		return m.SpawnFn(cfg)
	}
	return NewMockChild(1000 + len(m.SpawnCalls)), nil
}

// MockChild is a test double for Child. It stays alive until Exit or
// Kill is called.
type MockChild struct {
	mu      sync.Mutex
	pid     int
	done    chan struct{}
	Signals []os.Signal
	Killed  bool
}

// NewMockChild creates a MockChild with the given PID.
func NewMockChild(pid int) *MockChild {
	return &MockChild{
		pid:  pid,
		done: make(chan struct{}),
	}
}

func (c *MockChild) Pid() int { return c.pid }

func (c *MockChild) Signal(sig os.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signals = append(c.Signals, sig)
	return nil
}

func (c *MockChild) Kill() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Killed = true
	c.exitLocked()
	return nil
}

// Exit simulates the child exiting on its own.
func (c *MockChild) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitLocked()
}

func (c *MockChild) exitLocked() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *MockChild) Wait() error {
	<-c.done
	return nil
}

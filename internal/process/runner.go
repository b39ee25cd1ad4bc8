package process

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes a short-lived helper command (test or reload) and
// reports a non-nil error when it exits non-zero. Quiet discards the
// command's output; otherwise it inherits the daemon's streams.
type Runner interface {
	Run(command string, quiet bool) error
}

// ExecRunner runs commands through os/exec, waiting for completion.
// Commands are split on whitespace, not run through a shell.
type ExecRunner struct{}

// Run executes the command line synchronously.
func (ExecRunner) Run(command string, quiet bool) error {
	name, args := SplitCommand(command)
	if name == "" {
		return fmt.Errorf("empty command")
	}
	cmd := exec.Command(name, args...)
	if !quiet {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// SplitCommand splits a command line on whitespace.
func SplitCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// MockRunner is a test double for Runner. Results are consumed in order;
// when exhausted, Err is returned for every call.
type MockRunner struct {
	Results []error
	Err     error
	Calls   []RunCall
}

// RunCall records one Run invocation.
type RunCall struct {
	Command string
	Quiet   bool
}

// Run records the call and returns the next scripted result.
func (m *MockRunner) Run(command string, quiet bool) error {
	m.Calls = append(m.Calls, RunCall{Command: command, Quiet: quiet})
	if len(m.Results) > 0 {
		err := m.Results[0]
		m.Results = m.Results[1:]
		return err
	}
	return m.Err
}

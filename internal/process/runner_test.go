package process

import "testing"

func TestExecRunnerZeroExit(t *testing.T) {
	if err := (ExecRunner{}).Run("true", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	if err := (ExecRunner{}).Run("false", true); err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}

func TestExecRunnerEmptyCommand(t *testing.T) {
	if err := (ExecRunner{}).Run("", true); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockRunnerScriptedResults(t *testing.T) {
	r := &MockRunner{Results: []error{nil}}

	if err := r.Run("check", true); err != nil {
		t.Fatalf("first result should be nil, got %v", err)
	}
	if err := r.Run("check", false); err != nil {
		t.Fatalf("exhausted results fall back to Err (nil), got %v", err)
	}
	if len(r.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(r.Calls))
	}
	if !r.Calls[0].Quiet || r.Calls[1].Quiet {
		t.Errorf("quiet flags recorded wrong: %v", r.Calls)
	}
}

package clierr

import "testing"

func TestExitCode(t *testing.T) {
	if got := New(InternalError, "boom").ExitCode(); got != 2 {
		t.Errorf("internal errors exit 2, got %d", got)
	}
	if got := New(LockHeld, "held").ExitCode(); got != 1 {
		t.Errorf("other errors exit 1, got %d", got)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(LockHeld, "held").WithDetails(map[string]any{"lock_file": "/p/.lintwatch.lock"})
	if err.Details["lock_file"] != "/p/.lintwatch.lock" {
		t.Errorf("details not attached: %#v", err.Details)
	}
	if err.Error() != "held" {
		t.Errorf("message changed: %q", err.Error())
	}
}

func TestSilentError(t *testing.T) {
	err := &SilentError{Code: 3}
	if err.Error() != "exit 3" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

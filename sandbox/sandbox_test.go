//go:build linux

package sandbox

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/calvinalkan/hakoniwa/policy"
)

func Test_New_Rejects_Nil_Policy(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil policy")
	}
}

func Test_New_Rejects_Invalid_Policy(t *testing.T) {
	t.Parallel()

	if _, err := New(&policy.Policy{Hostname: strings.Repeat("a", 100)}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func Test_New_Accepts_Valid_Policy(t *testing.T) {
	t.Parallel()

	sb, err := New(&policy.Policy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sb == nil {
		t.Fatalf("expected non-nil Sandbox")
	}
}

func Test_Command_Defaults_MaxCaptureBytes(t *testing.T) {
	t.Parallel()

	sb, err := New(&policy.Policy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	executor := sb.Command("/bin/true")
	if executor.maxCaptureBytes != DefaultMaxCaptureBytes {
		t.Errorf("maxCaptureBytes = %d, want %d", executor.maxCaptureBytes, DefaultMaxCaptureBytes)
	}
}

func Test_Executor_Run_Twice_Returns_Internal_Error(t *testing.T) {
	sb, err := New(&policy.Policy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	executor := sb.Command("/bin/true")

	_, _ = executor.Run(context.Background())

	_, err = executor.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "called twice") {
		t.Fatalf("expected 'called twice' internal error, got %v", err)
	}
}

func Test_MergedEnv_Fills_Defaults_And_Applies_Overrides(t *testing.T) {
	t.Parallel()

	os.Unsetenv("TERM")

	p := &policy.Policy{Env: map[string]string{"HOME": "/home/sandbox"}}

	env := mergedEnv(p, map[string]string{"EXTRA": "1"})

	if env["HOME"] != "/home/sandbox" {
		t.Errorf("HOME = %q, want /home/sandbox", env["HOME"])
	}

	if env["PATH"] != "/usr/bin:/bin" {
		t.Errorf("PATH = %q, want default", env["PATH"])
	}

	if env["EXTRA"] != "1" {
		t.Errorf("EXTRA = %q, want 1", env["EXTRA"])
	}
}

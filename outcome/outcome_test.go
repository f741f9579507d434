//go:build linux

package outcome

import (
	"testing"

	"github.com/calvinalkan/hakoniwa/child"
)

func Test_Classify_Deadline_Fired_Takes_Priority(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{DeadlineFired: true, ReadyObserved: true, Exited: true, ExitCode: 0})
	if got.Status != Timeout {
		t.Errorf("Status = %v, want Timeout", got.Status)
	}
}

func Test_Classify_Reserved_Exit_Code_Without_Ready_Is_SandboxSetupError(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: false, Exited: true, ExitCode: child.ExitPivotRoot})
	if got.Status != SandboxSetupError {
		t.Errorf("Status = %v, want SandboxSetupError", got.Status)
	}

	if got.Reason == "" {
		t.Errorf("expected non-empty reason")
	}
}

func Test_Classify_Nonreserved_Exit_Without_Ready_Is_RunProgramFailed(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: false, Exited: true, ExitCode: 127})
	if got.Status != RunProgramFailed {
		t.Errorf("Status = %v, want RunProgramFailed", got.Status)
	}

	if got.ExitCode != 127 {
		t.Errorf("ExitCode = %d, want 127", got.ExitCode)
	}
}

func Test_Classify_Signal_Before_Ready_Is_RunProgramFailed(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: false, WasSignaled: true, SignalName: "killed", SignalNumber: 9})
	if got.Status != RunProgramFailed {
		t.Errorf("Status = %v, want RunProgramFailed", got.Status)
	}
}

func Test_Classify_Ready_Then_Normal_Exit_Is_Ok(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: true, Exited: true, ExitCode: 7})
	if got.Status != Ok {
		t.Errorf("Status = %v, want Ok", got.Status)
	}

	if got.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", got.ExitCode)
	}
}

func Test_Classify_Ready_Then_Signaled_Is_Signaled(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: true, WasSignaled: true, SignalName: "segmentation fault", SignalNumber: 11})
	if got.Status != Signaled {
		t.Errorf("Status = %v, want Signaled", got.Status)
	}

	if got.SignalNumber != 11 {
		t.Errorf("SignalNumber = %d, want 11", got.SignalNumber)
	}
}

func Test_Classify_Ready_Then_Execve_Failure_Is_RunProgramFailed(t *testing.T) {
	t.Parallel()

	got := Classify(Observation{ReadyObserved: true, Exited: true, ExitCode: child.ExitExec})
	if got.Status != RunProgramFailed {
		t.Errorf("Status = %v, want RunProgramFailed", got.Status)
	}

	if got.ExitCode != child.ExitExec {
		t.Errorf("ExitCode = %d, want %d", got.ExitCode, child.ExitExec)
	}
}

func Test_Status_String_Covers_All_Values(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{Ok, SandboxSetupError, RunProgramFailed, Timeout, Signaled} {
		if s.String() == "Unknown" {
			t.Errorf("Status(%d).String() = Unknown", s)
		}
	}
}

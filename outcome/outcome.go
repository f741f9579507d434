//go:build linux

// Package outcome classifies a finished sandbox run into the status
// vocabulary spec §4.6 defines, given the raw signals the supervisor
// observed: whether the deadline fired, whether the child's ready byte was
// seen, and the process's final wait status.
package outcome

import (
	"fmt"

	"github.com/calvinalkan/hakoniwa/child"
)

// Status is one of the outcome classes from spec §3/§4.6.
type Status int

const (
	Ok Status = iota
	SandboxSetupError
	RunProgramFailed
	Timeout
	Signaled
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case SandboxSetupError:
		return "SandboxSetupError"
	case RunProgramFailed:
		return "RunProgramFailed"
	case Timeout:
		return "Timeout"
	case Signaled:
		return "Signaled"
	default:
		return "Unknown"
	}
}

// Observation is the raw evidence the supervisor collected about a finished
// (or killed) run.
type Observation struct {
	DeadlineFired bool
	ReadyObserved bool

	// Exited reports whether the process exited normally (as opposed to
	// being terminated by a signal).
	Exited   bool
	ExitCode int

	// WasSignaled reports whether the process was terminated by a signal;
	// SignalNumber/SignalName are set in that case.
	WasSignaled  bool
	SignalNumber int
	SignalName   string
}

// Classification is the result of Classify.
type Classification struct {
	Status       Status
	ExitCode     int
	SignalNumber int
	Reason       string
}

// Classify applies spec §4.6's rules, in priority order.
func Classify(o Observation) Classification {
	if o.DeadlineFired {
		return Classification{Status: Timeout, Reason: "deadline exceeded"}
	}

	if !o.ReadyObserved {
		if o.Exited && child.IsReservedExitCode(o.ExitCode) {
			return Classification{
				Status: SandboxSetupError,
				Reason: fmt.Sprintf("sandbox setup failed at step: %s", child.StepName(o.ExitCode)),
			}
		}

		reason := "program could not be run"
		if o.WasSignaled {
			reason = fmt.Sprintf("child terminated by signal %s before ready", o.SignalName)
		}

		return Classification{Status: RunProgramFailed, ExitCode: o.ExitCode, Reason: reason}
	}

	if o.WasSignaled {
		return Classification{
			Status:       Signaled,
			SignalNumber: o.SignalNumber,
			Reason:       fmt.Sprintf("terminated by signal %s", o.SignalName),
		}
	}

	// Steps 9 (seccomp) and 10 (execve) run after ready is signaled at step
	// 8, so ExitSeccomp here is still a setup failure, and ExitExec means the
	// target program itself could not be run (e.g. ENOENT inside the pivoted
	// filesystem) — neither is a successful exit. Every other reserved code
	// is unreachable once ready has been observed, since steps 1-7 run
	// before step 8 and a step 8 failure means ready was never written.
	if o.Exited && o.ExitCode == child.ExitSeccomp {
		return Classification{
			Status: SandboxSetupError,
			Reason: fmt.Sprintf("sandbox setup failed at step: %s", child.StepName(o.ExitCode)),
		}
	}

	if o.Exited && o.ExitCode == child.ExitExec {
		return Classification{Status: RunProgramFailed, ExitCode: o.ExitCode, Reason: "execve target program failed"}
	}

	return Classification{Status: Ok, ExitCode: o.ExitCode}
}

//go:build linux

package child

// Wire protocol between the supervisor and the re-exec'd child: fixed FD
// numbers (inherited via exec.Cmd.ExtraFiles, exactly as the teacher passes
// wrapper-mount content across the process boundary via ExtraFiles in
// sandbox/command.go, repurposed here to hand the child its own config) and
// the reserved exit codes for each of the ten fatal steps in spec §4.4.

const (
	// StartFD is the parent->child pipe the child blocks on before doing
	// any setup.
	StartFD = 3

	// ReadyFD is the child->parent pipe signaled once rlimits are applied,
	// before the seccomp filter is installed and execve is called.
	ReadyFD = 4

	// ConfigFD carries the JSON-encoded Request the child needs: the
	// rendered policy plus the resolved program/argv/workdir/env. Stdin
	// bytes are not part of it; they reach the child on its standard input.
	ConfigFD = 5
)

// EnvMarker is set in the child's environment to select the re-exec
// dispatch path in cmd/hakoniwa/main.go, mirroring the argv0/env-marker
// re-exec idiom used by the teacher's multicall.go and the pack's ns.go /
// nsinit.go examples.
const EnvMarker = "HAKONIWA_CHILD"

// Reserved exit codes, one per fatal step, in the order spec §4.4 lists
// them. The outcome classifier treats any code in this range, observed
// without a Ready signal, as SandboxSetupError.
const (
	ExitWaitStart = 101 + iota
	ExitHostname
	ExitMountPlan
	ExitPivotRoot
	ExitEnvironment
	ExitIdentity
	ExitRlimits
	ExitReadySignal
	ExitSeccomp
	ExitExec
)

// StepName returns a human-readable name for a reserved exit code, used as
// the outcome's Reason string.
func StepName(code int) string {
	switch code {
	case ExitWaitStart:
		return "wait for start signal"
	case ExitHostname:
		return "set hostname"
	case ExitMountPlan:
		return "apply mount plan"
	case ExitPivotRoot:
		return "pivot root"
	case ExitEnvironment:
		return "apply environment"
	case ExitIdentity:
		return "drop privileges"
	case ExitRlimits:
		return "apply resource limits"
	case ExitReadySignal:
		return "signal ready"
	case ExitSeccomp:
		return "install seccomp filter"
	case ExitExec:
		return "execve target program"
	default:
		return "unknown step"
	}
}

// IsReservedExitCode reports whether code falls in the reserved 101-110
// setup-failure range.
func IsReservedExitCode(code int) bool {
	return code >= ExitWaitStart && code <= ExitExec
}

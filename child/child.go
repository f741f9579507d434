//go:build linux

// Package child implements the code that runs inside the cloned, namespaced
// child process: the ten ordered, fatal setup steps of spec §4.4, each
// exiting with a distinct reserved code (101-110) on failure so the
// supervisor's outcome classifier can attribute the failure to a step
// without any structured error crossing the process boundary.
package child

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calvinalkan/hakoniwa/mountplan"
	"github.com/calvinalkan/hakoniwa/sys"
)

// Main runs the child runtime and never returns on success: step 10 either
// replaces the process image via execve or exits with ExitExec. On any
// fatal step it prints the cause to stderr (inherited from the supervisor,
// captured like any other child output) and exits with that step's reserved
// code.
func Main() {
	startFile := os.NewFile(StartFD, "start")
	readyFile := os.NewFile(ReadyFD, "ready")
	configFile := os.NewFile(ConfigFD, "config")

	req, err := readRequest(configFile)
	if err != nil {
		fatal(ExitWaitStart, "read config", err)
	}

	// Step 1: wait on start pipe.
	if err := waitStart(startFile); err != nil {
		fatal(ExitWaitStart, "wait for start", err)
	}

	// Step 2: hostname.
	if req.Policy.Hostname != "" {
		if err := sys.Sethostname(req.Policy.Hostname); err != nil {
			fatal(ExitHostname, "sethostname", err)
		}
	}

	// Step 3: make mounts private, new root tmpfs, mount plan.
	scratchRoot, err := newScratchRoot()
	if err != nil {
		fatal(ExitMountPlan, "scratch root", err)
	}

	plan, err := mountplan.Build(req.Policy)
	if err != nil {
		fatal(ExitMountPlan, "build mount plan", err)
	}

	if err := applyMountPlan(scratchRoot, plan); err != nil {
		fatal(ExitMountPlan, "apply mount plan", err)
	}

	// Step 4: pivot_root.
	if err := pivot(scratchRoot); err != nil {
		fatal(ExitPivotRoot, "pivot root", err)
	}

	// Step 5: environment, then the requested working directory.
	os.Clearenv()

	for k, v := range req.Env {
		if err := os.Setenv(k, v); err != nil {
			fatal(ExitEnvironment, "setenv", err)
		}
	}

	workdir := req.Workdir
	if workdir == "" {
		workdir = "/"
	}

	if err := sys.Chdir(workdir); err != nil {
		fatal(ExitEnvironment, "chdir workdir", err)
	}

	// Step 6: drop privileges.
	if err := dropPrivileges(req.Policy); err != nil {
		fatal(ExitIdentity, "drop privileges", err)
	}

	// Step 7: rlimits, in the fixed order.
	if err := applyLimits(req.Policy); err != nil {
		fatal(ExitRlimits, "apply rlimits", err)
	}

	// Step 8: signal ready.
	if _, err := readyFile.Write([]byte{1}); err != nil {
		fatal(ExitReadySignal, "signal ready", err)
	}

	_ = readyFile.Close()

	// Step 9: no-new-privs + seccomp.
	if err := sys.SetNoNewPrivs(); err != nil {
		fatal(ExitSeccomp, "set no new privs", err)
	}

	if req.Policy.Seccomp != nil {
		filter, err := sys.BuildFilter(req.Policy.Seccomp.Default == "allow", req.Policy.Seccomp.Syscalls)
		if err != nil {
			fatal(ExitSeccomp, "build seccomp filter", err)
		}

		if err := sys.Install(filter); err != nil {
			fatal(ExitSeccomp, "install seccomp filter", err)
		}
	}

	// Step 10: execve.
	if err := sys.Exec(req.Program, req.Argv, os.Environ()); err != nil {
		fatal(ExitExec, "execve", err)
	}
}

func readRequest(f *os.File) (*Request, error) {
	defer f.Close()

	var req Request
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	return &req, nil
}

func waitStart(f *os.File) error {
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil {
		return fmt.Errorf("read start byte: %w", err)
	}

	return nil
}

func fatal(code int, step string, err error) {
	fmt.Fprintf(os.Stderr, "hakoniwa(child): %s: %v\n", step, err)
	os.Exit(code)
}

//go:build linux

// Package sandbox is hakoniwa's public API: a Sandbox holds a validated,
// immutable Policy; Command begins a fluent, single-use Executor; Run drives
// the clone/namespace/mount/seccomp pipeline via supervisor and returns a
// classified Result. The two-stage Sandbox/Executor split mirrors
// original_source/src/sandbox.rs's Sandbox::command() builder, adapted from
// the teacher's own Sandbox type in _examples/calvinalkan-agent-sandbox/sandbox/sandbox.go.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/calvinalkan/hakoniwa/outcome"
	"github.com/calvinalkan/hakoniwa/policy"
	"github.com/calvinalkan/hakoniwa/supervisor"
)

// DefaultMaxCaptureBytes bounds stdout/stderr capture when an Executor
// doesn't override it, matching the teacher's default output cap.
const DefaultMaxCaptureBytes = 10 << 20

// noCopy, embedded by value, makes `go vet` flag accidental copies of types
// that must stay single-owner, the same convention the teacher uses on its
// Sandbox and Executor types.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Sandbox holds a validated policy shared by every Executor it creates. A
// Sandbox is immutable after New and safe for concurrent use; Executors are
// not.
type Sandbox struct {
	_ noCopy

	policy *policy.Policy
}

// New validates p and returns a Sandbox ready to run commands under it.
func New(p *policy.Policy) (*Sandbox, error) {
	if p == nil {
		return nil, internalErrorf("sandbox.New: nil policy")
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	return &Sandbox{policy: p}, nil
}

// Command begins building a single invocation of program with argv (argv
// excludes program itself, prepended as the execve argv[0] by Run).
func (s *Sandbox) Command(program string, argv ...string) *Executor {
	return &Executor{
		sandbox:         s,
		program:         program,
		argv:            argv,
		env:             map[string]string{},
		maxCaptureBytes: DefaultMaxCaptureBytes,
	}
}

// Executor is a single-use, fluent builder for one sandboxed invocation.
// Every setter returns the Executor so calls can be chained in any order;
// Run consumes it and a second call to Run returns an internal error.
type Executor struct {
	_ noCopy

	sandbox *Sandbox
	program string
	argv    []string

	workdir  string
	env      map[string]string
	stdin    []byte
	deadline time.Duration

	maxCaptureBytes int64

	debugf supervisor.Debugf

	ran bool
}

// Workdir sets the working directory inside the sandbox root; it must be an
// absolute path that exists after the mount plan is applied. Empty means
// "/".
func (e *Executor) Workdir(dir string) *Executor {
	e.workdir = dir

	return e
}

// Setenv adds or overrides a single environment variable visible to the
// executed program, on top of the policy's own Env entries.
func (e *Executor) Setenv(key, value string) *Executor {
	e.env[key] = value

	return e
}

// Stdin sets the bytes piped to the child's standard input.
func (e *Executor) Stdin(data []byte) *Executor {
	e.stdin = data

	return e
}

// Deadline bounds wall-clock time; zero means no deadline.
func (e *Executor) Deadline(d time.Duration) *Executor {
	e.deadline = d

	return e
}

// MaxCaptureBytes overrides DefaultMaxCaptureBytes for this invocation; zero
// or negative means unbounded.
func (e *Executor) MaxCaptureBytes(n int64) *Executor {
	e.maxCaptureBytes = n

	return e
}

// Debugf installs a callback used for verbose tracing of supervisor
// decisions; nil (the default) disables tracing.
func (e *Executor) Debugf(fn func(format string, args ...any)) *Executor {
	e.debugf = supervisor.Debugf(fn)

	return e
}

// Result is the outcome of one Run, always populated with captured output
// regardless of Status.
type Result struct {
	Status       outcome.Status
	ExitCode     int
	SignalNumber int
	Reason       string
	Wall         time.Duration
	Stdout       []byte
	Stderr       []byte
}

// Run executes the command under the sandbox's policy, blocking until the
// child exits, is killed at the deadline, or ctx is canceled. Run may only
// be called once per Executor.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, internalErrorf("sandbox: Executor.Run called twice")
	}

	e.ran = true

	env := mergedEnv(e.sandbox.policy, e.env)

	cfg := supervisor.Config{
		Policy:          e.sandbox.policy,
		Program:         e.program,
		Argv:            append([]string{e.program}, e.argv...),
		Workdir:         e.workdir,
		Env:             env,
		Stdin:           e.stdin,
		Deadline:        e.deadline,
		MaxCaptureBytes: e.maxCaptureBytes,
		Debugf:          e.debugf,
	}

	res, err := supervisor.Run(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("run sandboxed command: %w", err)
	}

	return &Result{
		Status:       res.Classification.Status,
		ExitCode:     res.Classification.ExitCode,
		SignalNumber: res.Classification.SignalNumber,
		Reason:       res.Classification.Reason,
		Wall:         res.Wall,
		Stdout:       res.Stdout,
		Stderr:       res.Stderr,
	}, nil
}

// mergedEnv layers policy env under executor-level overrides, filling in
// fixed HOME (/root) and PATH (/usr/bin:/bin) defaults and the host's TERM
// (when the host has one) where neither specifies them, per
// spec §4.5 step 5's testable TERM scenario.
func mergedEnv(p *policy.Policy, overrides map[string]string) map[string]string {
	out := map[string]string{
		"PATH": "/usr/bin:/bin",
		"HOME": "/root",
	}

	if term, ok := os.LookupEnv("TERM"); ok {
		out["TERM"] = term
	}

	for k, v := range p.Env {
		out[k] = v
	}

	for k, v := range overrides {
		out[k] = v
	}

	return out
}

// internalErrorf reports a violation of the Sandbox/Executor API contract
// (as opposed to a runtime sandboxing failure), matching the teacher's
// internalErrorf convention for programmer-error conditions.
func internalErrorf(format string, args ...any) error {
	return fmt.Errorf("hakoniwa: internal error: "+format, args...)
}

//go:build linux

// Package supervisor owns the parent side of a sandbox run: cloning the
// child with the required namespace flags, the start/ready handshake,
// output capture, deadline enforcement, and reaping. Namespace creation and
// UID/GID map writing are delegated to exec.Cmd.SysProcAttr — Go's runtime
// already performs exactly the clone+uid_map+gid_map+setgroups=deny
// sequence spec §4.3 describes by hand, grounded in the same SysProcAttr
// shape used by
// other_examples/d5bade6b_alafilearnstocode-ccrun__internal-ns-ns.go.go and
// other_examples/337929d3_p-arndt-sandkasten__internal-runtime-linux-nsinit.go.go
// for the identical purpose.
// hakoniwa's own code supplies the two pipes and the child dispatch; see
// child.Main for what executes on the other side.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/hakoniwa/child"
	"github.com/calvinalkan/hakoniwa/outcome"
	"github.com/calvinalkan/hakoniwa/policy"
)

// Debugf is injected by callers that want visibility into supervisor
// decisions, matching the teacher's Debugf injection pattern
// (sandbox.Debugf) rather than a global logger.
type Debugf func(format string, args ...any)

// Config is everything the supervisor needs for one run.
type Config struct {
	Policy  *policy.Policy
	Program string
	Argv    []string
	Workdir string
	Env     map[string]string
	Stdin   []byte
	Deadline time.Duration

	// MaxCaptureBytes bounds captured stdout/stderr; zero means unbounded.
	MaxCaptureBytes int64

	Debugf Debugf
}

// Result is the product of a run: its outcome.Classify classification plus
// the captured output spec §7 requires to always be attached regardless of
// status.
type Result struct {
	Classification outcome.Classification
	Stdout         []byte
	Stderr         []byte
	Wall           time.Duration
}

func (c Config) debugf(format string, args ...any) {
	if c.Debugf == nil {
		return
	}

	c.Debugf("hakoniwa(supervisor): "+format, args...)
}

// Run clones a child via a re-exec of the current binary, drives the
// start/ready handshake, captures output, enforces the deadline, and
// returns a classified Result.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	selfPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve self executable: %w", err)
	}

	startR, startW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create start pipe: %w", err)
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create ready pipe: %w", err)
	}

	configR, configW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create config pipe: %w", err)
	}

	req := child.Request{
		Policy:  cfg.Policy,
		Program: cfg.Program,
		Argv:    cfg.Argv,
		Workdir: cfg.Workdir,
		Env:     cfg.Env,
	}

	cmd := exec.Command(selfPath)
	cmd.Env = []string{child.EnvMarker + "=1"}
	cmd.ExtraFiles = []*os.File{startR, readyW, configR}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: unix.CLONE_NEWNS | unix.CLONE_NEWPID | unix.CLONE_NEWUTS |
			unix.CLONE_NEWIPC | unix.CLONE_NEWUSER | unix.CLONE_NEWNET,
		UidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getuid(), Size: 1},
		},
		GidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getgid(), Size: 1},
		},
		GidMappingsEnableSetgroups: false,
	}

	var stdinReader io.Reader
	if len(cfg.Stdin) > 0 {
		stdinReader = bytes.NewReader(cfg.Stdin)
	}

	cmd.Stdin = stdinReader

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start child: %w", err)
	}

	cfg.debugf("started pid=%d program=%q", cmd.Process.Pid, cfg.Program)

	// Close the child's ends; they were dup'd into the new process by Start.
	_ = startR.Close()
	_ = readyW.Close()
	_ = configR.Close()

	if err := json.NewEncoder(configW).Encode(req); err != nil {
		_ = configW.Close()

		return nil, fmt.Errorf("write child config: %w", err)
	}

	_ = configW.Close()

	if _, err := startW.Write([]byte{1}); err != nil {
		return nil, fmt.Errorf("write start signal: %w", err)
	}

	_ = startW.Close()

	var stdout, stderr bytes.Buffer

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		copyLimited(&stdout, stdoutPipe, cfg.MaxCaptureBytes)
	}()

	go func() {
		defer wg.Done()

		copyLimited(&stderr, stderrPipe, cfg.MaxCaptureBytes)
	}()

	readyCh := make(chan bool, 1)

	go func() {
		buf := make([]byte, 1)

		_, err := readyR.Read(buf)
		readyCh <- err == nil
	}()

	waitCh := make(chan error, 1)

	go func() {
		wg.Wait()

		waitCh <- cmd.Wait()
	}()

	var deadlineCh <-chan time.Time
	if cfg.Deadline > 0 {
		deadlineCh = time.After(cfg.Deadline)
	}

	ready := false
	deadlineFired := false

	for {
		select {
		case r := <-readyCh:
			ready = r

			continue

		case <-deadlineCh:
			deadlineFired = true

			_ = cmd.Process.Signal(syscall.SIGKILL)

			<-waitCh

			return finish(cmd, start, ready, deadlineFired, stdout.Bytes(), stderr.Bytes(), cfg), nil

		case <-ctx.Done():
			_ = cmd.Process.Signal(syscall.SIGKILL)

			<-waitCh

			return finish(cmd, start, ready, deadlineFired, stdout.Bytes(), stderr.Bytes(), cfg), nil

		case err := <-waitCh:
			_ = err // captured via cmd.ProcessState below

			return finish(cmd, start, ready, deadlineFired, stdout.Bytes(), stderr.Bytes(), cfg), nil
		}
	}
}

func copyLimited(dst *bytes.Buffer, src io.Reader, max int64) {
	if max <= 0 {
		_, _ = io.Copy(dst, src)

		return
	}

	_, _ = io.CopyN(dst, src, max)
	_, _ = io.Copy(io.Discard, src)
}

func finish(cmd *exec.Cmd, start time.Time, ready, deadlineFired bool, stdout, stderr []byte, cfg Config) *Result {
	obs := outcome.Observation{DeadlineFired: deadlineFired, ReadyObserved: ready}

	if state := cmd.ProcessState; state != nil {
		if ws, ok := state.Sys().(syscall.WaitStatus); ok {
			switch {
			case ws.Signaled():
				obs.WasSignaled = true
				obs.SignalNumber = int(ws.Signal())
				obs.SignalName = unix.SignalName(ws.Signal())
			default:
				obs.Exited = true
				obs.ExitCode = ws.ExitStatus()
			}
		} else {
			obs.Exited = true
			obs.ExitCode = state.ExitCode()
		}
	}

	classification := outcome.Classify(obs)

	cfg.debugf("finished status=%s exitCode=%d wall=%s", classification.Status, classification.ExitCode, time.Since(start))

	return &Result{
		Classification: classification,
		Stdout:         stdout,
		Stderr:         stderr,
		Wall:           time.Since(start),
	}
}

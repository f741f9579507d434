package main

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/hakoniwa/outcome"
	"github.com/calvinalkan/hakoniwa/policy"
	"github.com/calvinalkan/hakoniwa/sandbox"
)

const executableName = "hakoniwa"

// Exit codes per spec §6/§7; the program's own exit code is used directly
// on Ok and is not listed here.
const (
	exitSandboxSetupError = 125
	exitProgramNotRun     = 126
	exitParseError        = 127
	exitTimeout           = 124
)

// Run is the CLI entry point, isolated from global state so it can be
// exercised with in-memory stdio, matching the teacher's own
// Run(stdin, stdout, stderr, args, env) isolation in
// _examples/calvinalkan-agent-sandbox/cmd/agent-sandbox/run.go.
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string) int {
	rest := args[1:]

	if len(rest) == 0 || rest[0] != "run" {
		fmt.Fprintln(stderr, "usage: hakoniwa run --policy-file <path> [--verbose] -- PROGRAM [ARGS...]")

		return exitParseError
	}

	rest = rest[1:]

	flags := flag.NewFlagSet(executableName, flag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() {}
	flags.SetOutput(io.Discard)

	flagPolicyFile := flags.String("policy-file", "", "Path to the JSONC `policy` file")
	flagVerbose := flags.Bool("verbose", false, "Print sandbox setup trace to stderr")

	if err := flags.Parse(rest); err != nil {
		fmt.Fprintf(stderr, "hakoniwa: %v\n", err)

		return exitParseError
	}

	rest = flags.Args()

	if *flagPolicyFile == "" || len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: hakoniwa run --policy-file <path> [--verbose] -- PROGRAM [ARGS...]")

		return exitParseError
	}

	verbosity := env["HAKONIWA_LOG"]
	debug := NewDebugLogger(nil)

	if *flagVerbose || verbosity == "debug" || verbosity == "info" {
		debug = NewDebugLogger(stderr)
	}

	text, err := os.ReadFile(*flagPolicyFile)
	if err != nil {
		fmt.Fprintf(stderr, "hakoniwa: read policy file: %v\n", err)

		return exitParseError
	}

	debug.Section("Policy")
	debug.Logf("loading %s", *flagPolicyFile)

	p, err := policy.Load(string(text))
	if err != nil {
		fmt.Fprintf(stderr, "hakoniwa: %v\n", err)

		return exitParseError
	}

	program := rest[0]
	programArgs := rest[1:]

	resolved, err := sandbox.ResolveProgram(program, env["PATH"])
	if err != nil {
		fmt.Fprintf(stderr, "hakoniwa: %v\n", err)

		return exitProgramNotRun
	}

	debug.Section("Program")
	debug.Logf("%s -> %s", program, resolved)

	sb, err := sandbox.New(p)
	if err != nil {
		fmt.Fprintf(stderr, "hakoniwa: %v\n", err)

		return exitSandboxSetupError
	}

	executor := sb.Command(resolved, programArgs...).Debugf(debug.Debugf)

	if f, ok := stdin.(*os.File); ok && f != nil {
		if data, readErr := io.ReadAll(f); readErr == nil {
			executor.Stdin(data)
		}
	}

	result, err := executor.Run(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "hakoniwa: %v\n", err)

		return exitSandboxSetupError
	}

	_, _ = stdout.Write(result.Stdout)
	_, _ = stderr.Write(result.Stderr)

	return exitCode(result, stderr)
}

func exitCode(result *sandbox.Result, stderr io.Writer) int {
	switch result.Status {
	case outcome.Ok:
		return result.ExitCode
	case outcome.SandboxSetupError:
		fmt.Fprintf(stderr, "hakoniwa: sandbox setup failed: %s\n", result.Reason)

		return exitSandboxSetupError
	case outcome.RunProgramFailed:
		fmt.Fprintf(stderr, "hakoniwa: program could not be run: %s\n", result.Reason)

		return exitProgramNotRun
	case outcome.Timeout:
		fmt.Fprintf(stderr, "hakoniwa: timed out: %s\n", result.Reason)

		return exitTimeout
	case outcome.Signaled:
		fmt.Fprintf(stderr, "hakoniwa: %s\n", result.Reason)

		return 128 + result.SignalNumber
	default:
		return exitSandboxSetupError
	}
}

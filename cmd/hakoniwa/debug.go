package main

import (
	"fmt"
	"io"
)

// DebugLogger provides structured trace output for a sandbox run. It is
// disabled by default (when output is nil) and writes to stderr when
// enabled, the same disabled-by-nil-writer convention as the teacher's own
// DebugLogger in
// _examples/calvinalkan-agent-sandbox/cmd/agent-sandbox/debug.go.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a logger; a nil output disables it.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled reports whether the logger writes anything.
func (d *DebugLogger) Enabled() bool {
	return d.output != nil
}

// Section prints a section header.
func (d *DebugLogger) Section(name string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf prints a formatted line.
func (d *DebugLogger) Logf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// Debugf adapts the logger to supervisor.Debugf's signature.
func (d *DebugLogger) Debugf(format string, args ...any) {
	d.Logf(format, args...)
}

//go:build linux

package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func Test_ResolveProgram_Finds_Binary_In_Path(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "mytool")
	writeExecutable(t, bin)

	got, err := ResolveProgram("mytool", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != bin {
		t.Errorf("ResolveProgram = %q, want %q", got, bin)
	}
}

func Test_ResolveProgram_Skips_Non_Executable_Candidate(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()

	notExec := filepath.Join(dirA, "tool")
	if err := os.WriteFile(notExec, []byte("data"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	exec := filepath.Join(dirB, "tool")
	writeExecutable(t, exec)

	path := dirA + string(os.PathListSeparator) + dirB

	got, err := ResolveProgram("tool", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != exec {
		t.Errorf("ResolveProgram = %q, want %q", got, exec)
	}
}

func Test_ResolveProgram_Errors_When_Not_Found(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if _, err := ResolveProgram("no-such-tool", dir); err == nil {
		t.Fatalf("expected error")
	}
}

func Test_ResolveProgram_Accepts_Direct_Path_Containing_Slash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "tool")
	writeExecutable(t, bin)

	got, err := ResolveProgram(bin, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != bin {
		t.Errorf("ResolveProgram = %q, want %q", got, bin)
	}
}

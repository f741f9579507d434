//go:build linux

package child

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_EnsureMountTarget_Creates_Directory_For_Directory_Source(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	source := filepath.Join(tmp, "srcdir")

	if err := os.Mkdir(source, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	target := filepath.Join(tmp, "nested", "target")

	if err := ensureMountTarget(source, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("target not created: %v", err)
	}

	if !info.IsDir() {
		t.Errorf("target is not a directory")
	}
}

func Test_EnsureMountTarget_Creates_Empty_File_For_File_Source(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	source := filepath.Join(tmp, "srcfile")

	if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	target := filepath.Join(tmp, "nested", "target")

	if err := ensureMountTarget(source, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("target not created: %v", err)
	}

	if info.IsDir() {
		t.Errorf("target should be a file")
	}

	if info.Size() != 0 {
		t.Errorf("target should be created empty, got size %d", info.Size())
	}
}

func Test_EnsureMountTarget_Errors_When_Source_Missing(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()

	err := ensureMountTarget(filepath.Join(tmp, "nope"), filepath.Join(tmp, "target"))
	if err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func Test_NewScratchRoot_Creates_A_Fresh_Directory(t *testing.T) {
	t.Parallel()

	dir, err := newScratchRoot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defer os.RemoveAll(dir)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("scratch root not created: %v", err)
	}

	if !info.IsDir() {
		t.Errorf("scratch root is not a directory")
	}
}

//go:build linux

package child

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/calvinalkan/hakoniwa/mountplan"
	"github.com/calvinalkan/hakoniwa/sys"
)

// newScratchRoot creates a private directory to mount the new root's tmpfs
// onto. It must exist in the host filesystem view, since this happens
// before pivot_root swaps the root out from under it.
func newScratchRoot() (string, error) {
	dir, err := os.MkdirTemp("", "hakoniwa-root-*")
	if err != nil {
		return "", fmt.Errorf("create scratch root: %w", err)
	}

	return dir, nil
}

// applyMountPlan first makes the whole mount tree private so nothing
// mounted below leaks into the supervisor's namespace, then mounts the new
// root tmpfs at scratchRoot, chdirs into it, and executes every remaining
// operation in plan with targets resolved relative to scratchRoot. This all
// happens before pivot_root, while the host filesystem is still reachable
// at its original paths for bind-mount sources.
func applyMountPlan(scratchRoot string, plan *mountplan.Plan) error {
	if err := sys.MakeMountsPrivate(); err != nil {
		return err
	}

	if err := sys.MountTmpfs(scratchRoot); err != nil {
		return err
	}

	if err := sys.Chdir(scratchRoot); err != nil {
		return err
	}

	for _, op := range plan.Ops {
		if op.Kind == mountplan.OpMountTmpfsRoot {
			continue
		}

		target := filepath.Join(scratchRoot, op.Target)

		switch op.Kind {
		case mountplan.OpMountProc:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("mkdir %q: %w", target, err)
			}

			if err := sys.MountProc(target); err != nil {
				return err
			}

		case mountplan.OpBind:
			if err := ensureMountTarget(op.Source, target); err != nil {
				return err
			}

			if err := sys.BindMount(op.Source, target, op.RW); err != nil {
				return err
			}

		case mountplan.OpMakeDevNode:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("mkdir %q: %w", filepath.Dir(target), err)
			}

			if err := sys.MakeDevNode(target, op.DevMajor, op.DevMinor, op.DevPerm); err != nil {
				return err
			}

		case mountplan.OpMountTmpfsTmp:
			if err := os.MkdirAll(target, 0o1777); err != nil {
				return fmt.Errorf("mkdir %q: %w", target, err)
			}

			if err := sys.MountTmpfs(target); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown mount op %d for target %q", op.Kind, op.Target)
		}
	}

	return nil
}

// ensureMountTarget creates a bind-mount target of the same kind (file or
// directory) as its source, matching spec §4.2's "targets that do not exist
// are created as empty files or directories matching the source's kind".
func ensureMountTarget(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat bind source %q: %w", source, err)
	}

	if info.IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir parent of %q: %w", target, err)
	}

	f, err := os.OpenFile(target, os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("create bind target %q: %w", target, err)
	}

	return f.Close()
}

// pivot swaps the process root for scratchRoot, stashes the old root at a
// subdirectory, then detaches and discards it.
func pivot(scratchRoot string) error {
	oldRoot := filepath.Join(scratchRoot, ".hakoniwa-oldroot")
	if err := os.MkdirAll(oldRoot, 0o700); err != nil {
		return fmt.Errorf("mkdir old-root stash %q: %w", oldRoot, err)
	}

	if err := sys.PivotRoot(scratchRoot, oldRoot); err != nil {
		return err
	}

	if err := sys.Chdir("/"); err != nil {
		return err
	}

	const oldRootAfterPivot = "/.hakoniwa-oldroot"

	if err := sys.Unmount(oldRootAfterPivot); err != nil {
		return err
	}

	_ = os.RemoveAll(oldRootAfterPivot)

	return nil
}

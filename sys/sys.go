//go:build linux

// Package sys provides thin, typed wrappers over the raw namespace, mount,
// resource-limit, and privilege syscalls the child runtime needs. It exists
// so that the rest of the module talks in named operations
// (BindMount, PivotRoot, SetRlimit, ...) instead of raw unix.* calls
// scattered across packages.
package sys

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Sethostname sets the UTS hostname of the calling process's UTS namespace.
func Sethostname(name string) error {
	if err := unix.Sethostname([]byte(name)); err != nil {
		return fmt.Errorf("sethostname(%q): %w", name, err)
	}

	return nil
}

// MakeMountsPrivate recursively marks the whole mount tree MS_PRIVATE so
// that nothing mounted afterward propagates out to the namespace this
// process cloned from. It must run before any other mount or pivot_root
// call in a freshly unshared mount namespace, since most distributions mark
// "/" MS_SHARED by default.
func MakeMountsPrivate() error {
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("make mounts private: %w", err)
	}

	return nil
}

// MountTmpfs mounts a fresh tmpfs at target.
func MountTmpfs(target string) error {
	if err := unix.Mount("tmpfs", target, "tmpfs", 0, ""); err != nil {
		return fmt.Errorf("mount tmpfs at %q: %w", target, err)
	}

	return nil
}

// MountProc mounts a fresh procfs at target with nosuid,nodev,noexec.
func MountProc(target string) error {
	if err := unix.Mount("proc", target, "proc", 0, ""); err != nil {
		return fmt.Errorf("mount proc at %q: %w", target, err)
	}

	flags := uintptr(unix.MS_REMOUNT | unix.MS_NOSUID | unix.MS_NODEV | unix.MS_NOEXEC)
	if err := unix.Mount("", target, "", flags, ""); err != nil {
		return fmt.Errorf("remount proc at %q: %w", target, err)
	}

	return nil
}

// BindMount performs the two-step bind+remount the kernel requires to apply
// mount flags to a bind mount: a plain MS_BIND, then a MS_REMOUNT|MS_BIND
// pass carrying the desired flags. Both kinds carry MS_NOSUID; rw selects a
// writable bind, otherwise MS_RDONLY is added.
func BindMount(src, dst string, rw bool) error {
	if err := unix.Mount(src, dst, "", unix.MS_BIND, ""); err != nil {
		return fmt.Errorf("bind %q -> %q: %w", src, dst, err)
	}

	flags := uintptr(unix.MS_REMOUNT | unix.MS_BIND)
	if rw {
		flags |= unix.MS_NOSUID
	} else {
		flags |= unix.MS_RDONLY | unix.MS_NOSUID
	}

	if err := unix.Mount("", dst, "", flags, ""); err != nil {
		return fmt.Errorf("remount bind %q: %w", dst, err)
	}

	return nil
}

// Unmount lazily detaches a mount point.
func Unmount(target string) error {
	if err := unix.Unmount(target, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount %q: %w", target, err)
	}

	return nil
}

// PivotRoot swaps the process root for newRoot, stashing the old root at
// newRoot+putOld (conventionally a directory already present under newRoot).
func PivotRoot(newRoot, putOld string) error {
	if err := unix.PivotRoot(newRoot, putOld); err != nil {
		return fmt.Errorf("pivot_root(%q, %q): %w", newRoot, putOld, err)
	}

	return nil
}

// Chdir wraps os.Chdir for symmetry with the other façade functions.
func Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("chdir(%q): %w", dir, err)
	}

	return nil
}

// MakeDevNode creates a character device node at path with the given major,
// minor device numbers and permission bits.
func MakeDevNode(path string, major, minor uint32, perm os.FileMode) error {
	dev := unix.Mkdev(major, minor)
	if err := unix.Mknod(path, unix.S_IFCHR|uint32(perm.Perm()), int(dev)); err != nil {
		return fmt.Errorf("mknod(%q): %w", path, err)
	}

	return nil
}

// SetNoNewPrivs sets PR_SET_NO_NEW_PRIVS, a prerequisite for installing an
// unprivileged seccomp filter.
func SetNoNewPrivs() error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PR_SET_NO_NEW_PRIVS): %w", err)
	}

	return nil
}

// SetGroupsDeny disables supplementary groups, matching the child's drop of
// all groups before setresgid/setresuid.
func SetGroupsDeny() error {
	if err := unix.Setgroups(nil); err != nil {
		return fmt.Errorf("setgroups([]): %w", err)
	}

	return nil
}

// SetResGid sets real, effective, and saved GID.
func SetResGid(gid int) error {
	if err := unix.Setresgid(gid, gid, gid); err != nil {
		return fmt.Errorf("setresgid(%d): %w", gid, err)
	}

	return nil
}

// SetResUid sets real, effective, and saved UID.
func SetResUid(uid int) error {
	if err := unix.Setresuid(uid, uid, uid); err != nil {
		return fmt.Errorf("setresuid(%d): %w", uid, err)
	}

	return nil
}

// Rlimit resource kinds recognized by the policy's limits table, in the
// exact application order the original implementation uses.
type RlimitKind int

const (
	RlimitAS RlimitKind = iota
	RlimitCPU
	RlimitCore
	RlimitFsize
	RlimitNofile
)

// OrderedRlimitKinds is the fixed application order for rlimits: address
// space, CPU seconds, core size, file size, open files.
var OrderedRlimitKinds = []RlimitKind{RlimitAS, RlimitCPU, RlimitCore, RlimitFsize, RlimitNofile}

func (k RlimitKind) resource() int {
	switch k {
	case RlimitAS:
		return unix.RLIMIT_AS
	case RlimitCPU:
		return unix.RLIMIT_CPU
	case RlimitCore:
		return unix.RLIMIT_CORE
	case RlimitFsize:
		return unix.RLIMIT_FSIZE
	case RlimitNofile:
		return unix.RLIMIT_NOFILE
	default:
		return -1
	}
}

func (k RlimitKind) String() string {
	switch k {
	case RlimitAS:
		return "as"
	case RlimitCPU:
		return "cpu"
	case RlimitCore:
		return "core"
	case RlimitFsize:
		return "fsize"
	case RlimitNofile:
		return "nofile"
	default:
		return "unknown"
	}
}

// SetRlimit applies a single resource ceiling with soft == hard, matching
// the policy model's "unset means inherit" / "set means soft=hard" contract.
func SetRlimit(kind RlimitKind, value uint64) error {
	rlim := unix.Rlimit{Cur: value, Max: value}
	if err := unix.Setrlimit(kind.resource(), &rlim); err != nil {
		return fmt.Errorf("setrlimit(%s, %d): %w", kind, value, err)
	}

	return nil
}

// Exec replaces the calling process image via execve, consulting envp
// exactly as given (callers are responsible for building it; see the child
// runtime's environment step).
func Exec(path string, argv, envp []string) error {
	if err := unix.Exec(path, argv, envp); err != nil {
		return fmt.Errorf("execve(%q): %w", path, err)
	}

	return nil
}

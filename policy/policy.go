//go:build linux

// Package policy defines the declarative sandbox policy document and its
// recognized fields, independent of how it is loaded or rendered.
package policy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/hakoniwa/sys"
)

// Policy is the root configuration object for a sandbox run.
//
// Unknown fields in the source document are rejected by the loader, not by
// Policy itself; Policy only validates the shape of fields it knows about.
type Policy struct {
	UID      *int
	GID      *int
	Hostname string

	MountNewTmpfs bool
	MountNewDevfs bool
	Mounts        []Mount

	Env map[string]string

	Limits Limits

	Seccomp *Seccomp
}

// Mount is a single bind-mount entry.
//
// Source and Target are absolute paths. RW selects a writable bind; the zero
// value is read-only. Optional tolerates a missing Source at mount-plan time
// (resolved Open Question from the original spec: missing mount sources
// error by default unless Optional is set).
type Mount struct {
	Source   string
	Target   string
	RW       bool
	Optional bool
}

// Limits holds resource ceilings. A nil pointer means "inherit"; a non-nil
// pointer applies the soft and hard limit together at the given value.
type Limits struct {
	AS     *uint64
	CPU    *uint64
	Core   *uint64
	Fsize  *uint64
	Nofile *uint64
}

// Seccomp is a syscall filter: a default action plus an ordered exception
// list whose entries take the opposite action.
type Seccomp struct {
	Default  string
	Syscalls []string
}

const (
	SeccompAllow = "allow"
	SeccompKill  = "kill"
)

// Validate checks structural invariants that the loader's decode step cannot
// express (cross-field and semantic checks). It does not check whether
// mount sources exist on disk; that is the mount planner's job.
func (p *Policy) Validate() error {
	var errs []error

	if p.Hostname != "" && len(p.Hostname) > 64 {
		errs = append(errs, fmt.Errorf("hostname %q exceeds 64 bytes", p.Hostname))
	}

	for i, m := range p.Mounts {
		if strings.TrimSpace(m.Target) == "" {
			errs = append(errs, fmt.Errorf("mount %d: empty target", i))
			continue
		}

		if !filepath.IsAbs(m.Target) {
			errs = append(errs, fmt.Errorf("mount %d: target %q is not absolute", i, m.Target))
		}

		if strings.Contains(m.Target, "..") {
			errs = append(errs, fmt.Errorf("mount %d: target %q must not contain '..'", i, m.Target))
		}

		if strings.TrimSpace(m.Source) == "" {
			errs = append(errs, fmt.Errorf("mount %d: empty source", i))
			continue
		}

		if !filepath.IsAbs(m.Source) {
			errs = append(errs, fmt.Errorf("mount %d: source %q is not absolute", i, m.Source))
		}
	}

	if p.Seccomp != nil {
		switch p.Seccomp.Default {
		case SeccompAllow, SeccompKill:
		case "":
			errs = append(errs, errors.New("seccomp.default is required when seccomp is set"))
		default:
			errs = append(errs, fmt.Errorf("seccomp.default %q must be %q or %q", p.Seccomp.Default, SeccompAllow, SeccompKill))
		}

		for _, name := range p.Seccomp.Syscalls {
			if _, ok := sys.SyscallNumber(name); !ok {
				errs = append(errs, fmt.Errorf("seccomp: unknown syscall %q", name))
			}
		}
	}

	return errors.Join(errs...)
}

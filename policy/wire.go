//go:build linux

package policy

// wirePolicy mirrors the JSONC policy document's field names (spec.md §6).
// It exists separately from Policy so that the public Policy type is free to
// use idiomatic Go naming (UID vs "uid") while the decoder stays strict
// about unknown fields in the document's own vocabulary.
type wirePolicy struct {
	UID      *int   `json:"uid,omitempty"`
	GID      *int   `json:"gid,omitempty"`
	Hostname string `json:"hostname,omitempty"`

	MountNewTmpfs bool        `json:"mount_new_tmpfs,omitempty"`
	MountNewDevfs bool        `json:"mount_new_devfs,omitempty"`
	Mounts        []wireMount `json:"mounts,omitempty"`

	Env map[string]string `json:"env,omitempty"`

	Limits wireLimits `json:"limits,omitempty"`

	Seccomp *wireSeccomp `json:"seccomp,omitempty"`
}

type wireMount struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	RW       bool   `json:"rw,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type wireLimits struct {
	AS     *uint64 `json:"as,omitempty"`
	CPU    *uint64 `json:"cpu,omitempty"`
	Core   *uint64 `json:"core,omitempty"`
	Fsize  *uint64 `json:"fsize,omitempty"`
	Nofile *uint64 `json:"nofile,omitempty"`
}

type wireSeccomp struct {
	Default  string   `json:"default"`
	Syscalls []string `json:"syscalls,omitempty"`
}

func (w wirePolicy) toPolicy() *Policy {
	p := &Policy{
		UID:           w.UID,
		GID:           w.GID,
		Hostname:      w.Hostname,
		MountNewTmpfs: w.MountNewTmpfs,
		MountNewDevfs: w.MountNewDevfs,
		Env:           w.Env,
		Limits: Limits{
			AS:     w.Limits.AS,
			CPU:    w.Limits.CPU,
			Core:   w.Limits.Core,
			Fsize:  w.Limits.Fsize,
			Nofile: w.Limits.Nofile,
		},
	}

	for _, m := range w.Mounts {
		p.Mounts = append(p.Mounts, Mount{Source: m.Source, Target: m.Target, RW: m.RW, Optional: m.Optional})
	}

	if w.Seccomp != nil {
		p.Seccomp = &Seccomp{Default: w.Seccomp.Default, Syscalls: w.Seccomp.Syscalls}
	}

	return p
}

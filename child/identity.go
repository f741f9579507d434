//go:build linux

package child

import (
	"github.com/calvinalkan/hakoniwa/policy"
	"github.com/calvinalkan/hakoniwa/sys"
)

// dropPrivileges implements step 6: drop supplementary groups, then set
// real/effective gid and uid to the configured values, or to the mapped
// unprivileged identity (0, since the supervisor maps the caller to uid/gid
// 0 inside the sandbox's user namespace) when the policy leaves them unset.
func dropPrivileges(p *policy.Policy) error {
	if err := sys.SetGroupsDeny(); err != nil {
		return err
	}

	gid := 0
	if p.GID != nil {
		gid = *p.GID
	}

	if err := sys.SetResGid(gid); err != nil {
		return err
	}

	uid := 0
	if p.UID != nil {
		uid = *p.UID
	}

	return sys.SetResUid(uid)
}

// applyLimits implements step 7: apply every configured rlimit in the fixed
// order (AS, CPU, Core, Fsize, Nofile), matching
// original_source/src/child_process/rlimits.rs.
func applyLimits(p *policy.Policy) error {
	values := map[sys.RlimitKind]*uint64{
		sys.RlimitAS:     p.Limits.AS,
		sys.RlimitCPU:    p.Limits.CPU,
		sys.RlimitCore:   p.Limits.Core,
		sys.RlimitFsize:  p.Limits.Fsize,
		sys.RlimitNofile: p.Limits.Nofile,
	}

	for _, kind := range sys.OrderedRlimitKinds {
		v := values[kind]
		if v == nil {
			continue
		}

		if err := sys.SetRlimit(kind, *v); err != nil {
			return err
		}
	}

	return nil
}

//go:build linux

// Package mountplan turns a policy into a deterministic, ordered sequence of
// mount operations for the child runtime to execute in its scratch root
// before it pivots into it. It is adapted from the teacher's bwrap-argv
// planner (sandbox/bwrap.go): the same deterministic-ordering approach, but
// emitting native mount operations instead of bwrap CLI tokens.
package mountplan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/calvinalkan/hakoniwa/policy"
)

// OpKind identifies the operation a Op performs.
type OpKind int

const (
	OpMountTmpfsRoot OpKind = iota
	OpMountProc
	OpBind
	OpMakeDevNode
	OpMountTmpfsTmp
	OpChdir
)

// Op is a single concrete mount-plan operation.
type Op struct {
	Kind OpKind

	// Target is the in-sandbox path the operation applies to.
	Target string

	// Source is the host path for OpBind; empty otherwise.
	Source string

	// RW selects a writable bind for OpBind; ignored for other kinds.
	RW bool

	// DevMajor/DevMinor/DevPerm apply to OpMakeDevNode.
	DevMajor, DevMinor uint32
	DevPerm            os.FileMode
}

// devNode is one synthetic /dev entry. Major/minor numbers match the
// standard Linux mem character device assignments. Per
// hakoniwa/tests/sandbox_policy_test.rs, /dev/null is read-write while
// /dev/zero, /dev/random, /dev/urandom are read-only.
type devNode struct {
	name         string
	major, minor uint32
	rw           bool
}

var devNodes = []devNode{
	{name: "null", major: 1, minor: 3, rw: true},
	{name: "random", major: 1, minor: 8, rw: false},
	{name: "urandom", major: 1, minor: 9, rw: false},
	{name: "zero", major: 1, minor: 5, rw: false},
}

// Plan is the ordered list of operations the child runtime executes.
type Plan struct {
	Ops []Op
}

// Build computes a deterministic mount plan from p.
//
// Ordering rules (spec §4.2, unchanged):
//  1. new root tmpfs first
//  2. /proc mounted early
//  3. declared binds, shallowest target first (see resolveBinds); policy
//     order is kept only among binds of equal target depth, not overall
//  4. /dev synthetic nodes after any host-owned /dev binds
//  5. /tmp tmpfs last, before pivot
func Build(p *policy.Policy) (*Plan, error) {
	var plan Plan

	plan.Ops = append(plan.Ops, Op{Kind: OpMountTmpfsRoot, Target: "/"})
	plan.Ops = append(plan.Ops, Op{Kind: OpMountProc, Target: "/proc"})

	binds, err := resolveBinds(p.Mounts)
	if err != nil {
		return nil, err
	}

	plan.Ops = append(plan.Ops, binds...)

	if p.MountNewDevfs {
		for _, d := range devNodes {
			perm := os.FileMode(0o666)
			if !d.rw {
				perm = 0o444
			}

			plan.Ops = append(plan.Ops, Op{
				Kind:     OpMakeDevNode,
				Target:   filepath.Join("/dev", d.name),
				DevMajor: d.major,
				DevMinor: d.minor,
				DevPerm:  perm,
			})
		}
	}

	if p.MountNewTmpfs {
		plan.Ops = append(plan.Ops, Op{Kind: OpMountTmpfsTmp, Target: "/tmp"})
	}

	return &plan, nil
}

// resolveBinds validates and orders the policy's declared mounts.
//
// Entries are sorted shallowest-target-first so parent directories are
// bound before any child path that might otherwise be shadowed by a later,
// deeper mount — the same rationale as the teacher's depth-sort in
// mountPlanFromResolved, generalized from resolved glob rules to the plain
// declared Mounts list (the policy model here has no glob/preset mount
// kinds; see SPEC_FULL.md §11).
func resolveBinds(mounts []policy.Mount) ([]Op, error) {
	type indexed struct {
		m     policy.Mount
		depth int
	}

	kept := make([]indexed, 0, len(mounts))

	for i, m := range mounts {
		if _, err := os.Stat(m.Source); err != nil {
			if os.IsNotExist(err) && m.Optional {
				continue
			}

			return nil, fmt.Errorf("mount %d: source %q: %w", i, m.Source, err)
		}

		kept = append(kept, indexed{m: m, depth: depth(m.Target)})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].depth < kept[j].depth
	})

	ops := make([]Op, 0, len(kept))
	for _, k := range kept {
		ops = append(ops, Op{Kind: OpBind, Source: k.m.Source, Target: k.m.Target, RW: k.m.RW})
	}

	return ops, nil
}

func depth(path string) int {
	cleaned := filepath.Clean(path)
	if cleaned == "/" {
		return 0
	}

	count := 0
	for _, r := range cleaned {
		if r == '/' {
			count++
		}
	}

	return count
}

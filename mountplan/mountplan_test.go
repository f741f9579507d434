//go:build linux

package mountplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/hakoniwa/policy"
)

func Test_Build_Orders_Root_Then_Proc_Then_Binds(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{
		Mounts: []policy.Mount{
			{Source: "/bin", Target: "/bin"},
		},
	}

	plan, err := Build(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Ops) < 3 {
		t.Fatalf("expected at least 3 ops, got %d", len(plan.Ops))
	}

	if plan.Ops[0].Kind != OpMountTmpfsRoot {
		t.Errorf("Ops[0].Kind = %v, want OpMountTmpfsRoot", plan.Ops[0].Kind)
	}

	if plan.Ops[1].Kind != OpMountProc {
		t.Errorf("Ops[1].Kind = %v, want OpMountProc", plan.Ops[1].Kind)
	}

	if plan.Ops[2].Kind != OpBind {
		t.Errorf("Ops[2].Kind = %v, want OpBind", plan.Ops[2].Kind)
	}
}

func Test_Build_Orders_Binds_Shallowest_Target_First(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{
		Mounts: []policy.Mount{
			{Source: "/usr/bin", Target: "/usr/bin"},
			{Source: "/usr", Target: "/usr"},
		},
	}

	plan, err := Build(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var binds []Op
	for _, op := range plan.Ops {
		if op.Kind == OpBind {
			binds = append(binds, op)
		}
	}

	if len(binds) != 2 {
		t.Fatalf("expected 2 binds, got %d", len(binds))
	}

	if binds[0].Target != "/usr" || binds[1].Target != "/usr/bin" {
		t.Errorf("bind order = [%q, %q], want [/usr, /usr/bin]", binds[0].Target, binds[1].Target)
	}
}

func Test_Build_Skips_Missing_Optional_Mount_Source(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{
		Mounts: []policy.Mount{
			{Source: "/definitely/does/not/exist", Target: "/x", Optional: true},
		},
	}

	plan, err := Build(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, op := range plan.Ops {
		if op.Kind == OpBind {
			t.Errorf("expected no bind op for missing optional source, got %+v", op)
		}
	}
}

func Test_Build_Errors_On_Missing_Required_Mount_Source(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{
		Mounts: []policy.Mount{
			{Source: "/definitely/does/not/exist", Target: "/x"},
		},
	}

	if _, err := Build(p); err == nil {
		t.Fatalf("expected error for missing required source")
	}
}

func Test_Build_Dev_Nodes_Match_Rw_Ro_Asymmetry(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{MountNewDevfs: true}

	plan, err := Build(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	perms := map[string]os.FileMode{}

	for _, op := range plan.Ops {
		if op.Kind == OpMakeDevNode {
			perms[filepath.Base(op.Target)] = op.DevPerm
		}
	}

	want := map[string]os.FileMode{
		"null":    0o666,
		"zero":    0o444,
		"random":  0o444,
		"urandom": 0o444,
	}

	if diff := cmp.Diff(want, perms); diff != "" {
		t.Errorf("dev node perms mismatch (-want +got):\n%s", diff)
	}
}

func Test_Build_Tmp_Tmpfs_Is_Last_When_Present(t *testing.T) {
	t.Parallel()

	p := &policy.Policy{MountNewTmpfs: true, MountNewDevfs: true}

	plan, err := Build(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := plan.Ops[len(plan.Ops)-1]
	if last.Kind != OpMountTmpfsTmp {
		t.Errorf("last op = %v, want OpMountTmpfsTmp", last.Kind)
	}
}

func Test_Depth_Counts_Path_Separators(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"/":        0,
		"/usr":     1,
		"/usr/bin": 2,
	}

	for path, want := range cases {
		if got := depth(path); got != want {
			t.Errorf("depth(%q) = %d, want %d", path, got, want)
		}
	}
}

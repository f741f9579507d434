//go:build linux

package child

import "github.com/calvinalkan/hakoniwa/policy"

// Request is everything the child needs, handed across ConfigFD as JSON by
// the supervisor immediately after clone.
type Request struct {
	Policy *policy.Policy `json:"policy"`

	// Program is the already PATH-resolved, absolute path to execve.
	Program string   `json:"program"`
	Argv    []string `json:"argv"`
	Workdir string   `json:"workdir"`

	// Env is the fully resolved environment (policy entries plus
	// HOME/PATH/TERM defaults, merged by sandbox.Executor.Run in the parent
	// before the supervisor starts the child; TERM is taken from the host
	// environment). The child applies it verbatim; see step 5 of the child
	// runtime.
	Env map[string]string `json:"env"`
}

// Command hakoniwa launches a program inside a namespaced, seccomp-filtered
// sandbox built from a JSONC policy file. Re-exec dispatch (HAKONIWA_CHILD)
// and the Run(stdin, stdout, stderr, args, env) isolation of global state
// both follow the teacher's own main.go /
// _examples/calvinalkan-agent-sandbox/cmd/agent-sandbox/run.go shape.
package main

import (
	"os"

	"github.com/calvinalkan/hakoniwa/child"
)

func main() {
	if _, ok := os.LookupEnv(child.EnvMarker); ok {
		child.Main()

		return
	}

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, environMap(os.Environ())))
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))

	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]

				break
			}
		}
	}

	return out
}

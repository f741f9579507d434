//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveProgram finds the absolute, executable path for name: if name
// already contains a path it is checked directly, otherwise each directory
// in path (host PATH, or the PATH supplied) is tried in order. Ported from
// original_source/src/fs.rs's find_executable_in_path/is_executable, which
// this program must match since the policy's execve call needs an absolute
// path resolved against the caller's (not the sandboxed) filesystem view.
func ResolveProgram(name, path string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if isExecutableFile(name) {
			abs, err := filepath.Abs(name)
			if err != nil {
				return "", fmt.Errorf("resolve %q: %w", name, err)
			}

			return abs, nil
		}

		return "", fmt.Errorf("resolve %q: not an executable file", name)
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}

		candidate := filepath.Join(dir, name)
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("resolve %q: not found in PATH", name)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

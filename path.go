package pipex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// lookupExecutable resolves name to an absolute or relative path the
// caller can pass to os.StartProcess. A name containing a slash is used
// as-is (after an access check); otherwise every directory in the
// resolved PATH is tried in order. os.StartProcess, unlike os/exec.Cmd,
// performs no PATH resolution of its own.
func lookupExecutable(name string, env map[string]string) (string, error) {
	if name == "" {
		return "", &SpawnError{Argv: []string{name}, Err: fmt.Errorf("empty command name")}
	}
	if strings.ContainsRune(name, '/') {
		if isExecutableFile(name) {
			return name, nil
		}
		return "", &SpawnError{Argv: []string{name}, Err: fmt.Errorf("not found or not executable")}
	}
	for _, dir := range pathDirs(env) {
		if dir == "" {
			dir = "."
		}
		full := filepath.Join(dir, name)
		if isExecutableFile(full) {
			return full, nil
		}
	}
	return "", &SpawnError{Argv: []string{name}, Err: fmt.Errorf("%s: not found in PATH", name)}
}

func pathDirs(env map[string]string) []string {
	if env != nil {
		if p, ok := env["PATH"]; ok {
			return strings.Split(p, string(os.PathListSeparator))
		}
	}
	if p := os.Getenv("PATH"); p != "" {
		return strings.Split(p, string(os.PathListSeparator))
	}
	return []string{""}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	mode := info.Mode().Perm()
	if os.Geteuid() == 0 {
		return mode&0o111 != 0
	}
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return false
	}
	uid, gid := os.Geteuid(), os.Getegid()
	switch {
	case int(st.Uid) == uid:
		return mode&0o100 != 0
	case int(st.Gid) == gid || inGroup(int(st.Gid)):
		return mode&0o010 != 0
	default:
		return mode&0o001 != 0
	}
}

func inGroup(gid int) bool {
	groups, err := os.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if g == gid {
			return true
		}
	}
	return false
}

// resolveEnv turns a Cmd's env override (nil means inherit verbatim) into
// the flat KEY=VALUE slice os.StartProcess wants: the parent's own
// environment with custom applied over it, never a fresh environment.
func resolveEnv(custom map[string]string) []string {
	if custom == nil {
		return os.Environ()
	}
	base := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			base[parts[0]] = parts[1]
		}
	}
	for k, v := range custom {
		base[k] = v
	}
	out := make([]string, 0, len(base))
	for k, v := range base {
		out = append(out, k+"="+v)
	}
	return out
}

// resolveRedirectPath resolves a possibly-relative redirect target against
// cwd (the Cmd's configured working directory), before the parent opens
// it. os.StartProcess offers no post-chdir, pre-exec hook to open the file
// from inside the child's own working directory, so an absolute path is
// computed up front instead; see the note on relative redirect paths in
// DESIGN.md.
func resolveRedirectPath(path, cwd string) string {
	if cwd == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

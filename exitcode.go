package pipex

import (
	"os"
	"syscall"
)

// exitCodeOf converts a finished process's state into a single exit code,
// following the shell convention of 128+signum for a signal-terminated
// child rather than exec.ExitError's -1.
func exitCodeOf(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

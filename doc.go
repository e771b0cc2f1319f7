// Package pipex composes and executes shell-style command pipelines from a
// host Go program without invoking a shell interpreter.
//
// Callers build an immutable description of a command tree — single
// commands, pipelines, per-descriptor redirections, and process
// substitutions — with Cmd and Pipeline, then execute it with Prepare. All
// stages run concurrently, wired through anonymous pipes the way a POSIX
// shell running with `set -o pipefail` would wire them, and every descriptor
// or child process pipex opens is guaranteed to be gone by the time Wait
// returns, however it returns.
//
// pipex does not parse shell syntax. There is no globbing, word-splitting,
// variable expansion, or `&&`/`||`/`;` sequencing — the host language's own
// control flow does that work; pipex only plumbs file descriptors between
// already-decided argv slices.
package pipex

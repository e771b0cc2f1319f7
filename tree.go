package pipex

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// procHandle is one spawned OS process together with the bookkeeping
// Execution needs to wait for it exactly once and report its result.
// isSubst marks a process-substitution helper: it counts toward cleanup
// and toward the overall wait, but never toward pipefail's "rightmost
// root proc" exit code.
type procHandle struct {
	proc    *os.Process
	argv    []string
	isSubst bool

	mu      sync.Mutex
	state   *os.ProcessState
	waitErr error
	waited  bool
}

// wait blocks until the process exits, memoizing the result so concurrent
// callers (the drain goroutine and a context-cancellation reaper) never
// race on the underlying syscall.
func (h *procHandle) wait() (*os.ProcessState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.waited {
		return h.state, h.waitErr
	}
	h.state, h.waitErr = h.proc.Wait()
	h.waited = true
	return h.state, h.waitErr
}

// kill sends SIGKILL best-effort; a process that already exited returns an
// error here that callers ignore. Delivered via unix.Kill, matching grc's
// own choice of unix.Kill over os.Process.Kill for signal delivery, since
// the same call site generalizes to process-group signals
// (unix.Kill(-pgid, unix.SIGCONT)) that os.Process has no equivalent for.
func (h *procHandle) kill() {
	_ = unix.Kill(h.proc.Pid, unix.SIGKILL)
}

// procTree is the realized form of a Node after Prepare: every spawned
// procHandle plus enough structure to compute a pipefail exit code and to
// tear everything down on cancellation.
type procTree struct {
	all  []*procHandle // every spawned proc, including substitution helpers
	root []*procHandle // proc(s) whose exit codes matter for the reported result

	mu   sync.Mutex
	wg   sync.WaitGroup
	errs []error
}

func newProcTree() *procTree {
	return &procTree{}
}

func (t *procTree) addProc(h *procHandle, isRoot bool) {
	t.all = append(t.all, h)
	if isRoot {
		t.root = append(t.root, h)
	}
}

// runFeeder starts fn in its own goroutine and tracks it so Execution can
// join every feeder and surface the first error, if any, alongside the
// process results.
func (t *procTree) runFeeder(fn func() error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := fn(); err != nil {
			t.mu.Lock()
			t.errs = append(t.errs, err)
			t.mu.Unlock()
		}
	}()
}

func (t *procTree) joinFeeders() error {
	t.wg.Wait()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.errs) > 0 {
		return t.errs[0]
	}
	return nil
}

// killAll sends SIGKILL to every spawned proc, used both for rollback
// after a mid-pipeline spawn failure and for context-cancellation teardown.
func (t *procTree) killAll() {
	for _, h := range t.all {
		h.kill()
	}
}

// reapAll waits for every spawned proc, shielding the reap from
// cancellation: this is always called after killAll or after normal
// completion, never interrupted, so no zombie or leaked fd survives a
// cancelled Wait.
func (t *procTree) reapAll() {
	for _, h := range t.all {
		h.wait()
	}
}

// pipefailCode implements the rightmost-non-zero rule over root procs
// only; substitution helpers never participate.
func pipefailCode(root []*procHandle) int {
	code := 0
	for _, h := range root {
		state, _ := h.wait()
		c := exitCodeOf(state)
		if c != 0 {
			code = c
		}
	}
	return code
}

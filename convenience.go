package pipex

import (
	"context"
	"os"

	"pipex/internal/asyncio"
)

// runOptions configures Run and Out. The zero value never raises on a
// non-zero exit; CheckExit opts in.
type runOptions struct {
	checkExit bool
}

// RunOption configures Run/Out.
type RunOption func(*runOptions)

// CheckExit makes Run/Out return a *NonZeroExit when the pipeline's
// reported return code is non-zero, instead of returning it as a plain
// int. The core engine never does this on its own.
func CheckExit() RunOption {
	return func(o *runOptions) { o.checkExit = true }
}

// Run prepares and waits on node using the calling process's own stdio,
// returning its pipefail return code.
func Run(ctx context.Context, node Node, opts ...RunOption) (int, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	ex, err := Prepare(ctx, node)
	if err != nil {
		return -1, err
	}
	res, err := ex.Wait(ctx)
	if err != nil {
		return -1, err
	}
	if o.checkExit && res.ReturnCode != 0 {
		return res.ReturnCode, &NonZeroExit{Argv: rootArgv(node, ex.tree.root), Code: res.ReturnCode}
	}
	return res.ReturnCode, nil
}

// Out prepares node with a freshly created pipe wired as its top-level
// stdout, drains it concurrently with waiting so a large writer can never
// deadlock against a slow reader, and returns everything written.
func Out(ctx context.Context, node Node, opts ...RunOption) ([]byte, Result, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, Result{}, &IoError{Op: "pipe", Err: err}
	}

	sc := &spawnCtx{ctx: ctx, tree: newProcTree(), topStdin: os.Stdin, topStdout: pw, topStderr: os.Stderr}
	if _, err := spawnNode(sc, node, os.Stdin, pw, os.Stderr, true); err != nil {
		pw.Close()
		pr.Close()
		sc.tree.killAll()
		sc.tree.reapAll()
		return nil, Result{}, err
	}
	pw.Close()

	type readResult struct {
		data []byte
		err  error
	}
	readCh := make(chan readResult, 1)
	go func() {
		data, err := asyncio.ReadAll(pr) // closes pr
		readCh <- readResult{data, err}
	}()

	ex := &Execution{node: node, tree: sc.tree}
	res, err := ex.Wait(ctx)
	rr := <-readCh
	if err != nil {
		return rr.data, Result{}, err
	}
	if rr.err != nil {
		return rr.data, res, &IoError{Op: "read stdout", Err: rr.err}
	}
	if o.checkExit && res.ReturnCode != 0 {
		return rr.data, res, &NonZeroExit{Argv: rootArgv(node, ex.tree.root), Code: res.ReturnCode, Output: rr.data}
	}
	return rr.data, res, nil
}

// rootArgv reports, for error reporting, the resolved argv of the rightmost
// root proc that exited non-zero — the stage whose code pipefail reported,
// with process substitutions shown as their /dev/fd/N paths. If no root
// proc failed, it falls back to node's literal argv (the last stage's, for
// a Pipeline).
func rootArgv(node Node, root []*procHandle) []string {
	for i := len(root) - 1; i >= 0; i-- {
		if state, _ := root[i].wait(); exitCodeOf(state) != 0 {
			return root[i].argv
		}
	}
	switch v := node.(type) {
	case *Cmd:
		return literalArgv(v)
	case *Pipeline:
		stages := v.Stages()
		if len(stages) == 0 {
			return nil
		}
		return literalArgv(stages[len(stages)-1])
	default:
		return nil
	}
}

func literalArgv(c *Cmd) []string {
	out := make([]string, 0, len(c.argv))
	for _, a := range c.argv {
		if a.sub == nil {
			out = append(out, a.lit)
		} else {
			out = append(out, "<process-substitution>")
		}
	}
	return out
}

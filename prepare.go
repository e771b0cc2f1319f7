package pipex

import (
	"context"
	"fmt"
	"os"

	"pipex/internal/asyncio"
	"pipex/internal/fdplan"
)

// spawnCtx carries the state threaded through recursive spawning: the
// process tree everything gets registered into, and the three descriptors
// process-substitution helpers inherit unless their own direction
// overrides one of them.
type spawnCtx struct {
	ctx                            context.Context
	tree                           *procTree
	topStdin, topStdout, topStderr *os.File
}

// Prepare resolves node into spawned OS processes wired exactly as its fd
// operations and process substitutions describe, starting from the
// calling process's own stdio. On any failure, every process already
// spawned during this call is killed and reaped before the error (a
// *SpawnError when the OS refuses to start a process, an *IoError when a
// pipe or redirected file cannot be opened) is returned; no zombie or
// leaked fd survives a failed Prepare.
func Prepare(ctx context.Context, node Node) (*Execution, error) {
	sc := &spawnCtx{
		ctx:       ctx,
		tree:      newProcTree(),
		topStdin:  os.Stdin,
		topStdout: os.Stdout,
		topStderr: os.Stderr,
	}
	if _, err := spawnNode(sc, node, os.Stdin, os.Stdout, os.Stderr, true); err != nil {
		sc.tree.killAll()
		sc.tree.reapAll()
		return nil, err
	}
	return &Execution{node: node, tree: sc.tree}, nil
}

// spawnNode dispatches on the two Node variants. isRoot propagates down:
// only the top-level node's own stages ever count toward pipefail.
func spawnNode(sc *spawnCtx, node Node, stdin, stdout, stderr *os.File, isRoot bool) ([]*procHandle, error) {
	switch v := node.(type) {
	case *Cmd:
		h, err := spawnCmd(sc, v, stdin, stdout, stderr, isRoot)
		if err != nil {
			return nil, err
		}
		return []*procHandle{h}, nil
	case *Pipeline:
		return spawnPipeline(sc, v, stdin, stdout, stderr, isRoot)
	default:
		return nil, &InternalInvariantViolation{Msg: fmt.Sprintf("unknown Node type %T", node)}
	}
}

// spawnPipeline spawns each stage left to right, wiring os.Pipe()s between
// adjacent stages and closing the parent's copy of each pipe end
// immediately after the stage that needs it has been spawned, so a
// downstream reader observes EOF as soon as every upstream writer has
// exited.
func spawnPipeline(sc *spawnCtx, p *Pipeline, stdin, stdout, stderr *os.File, isRoot bool) ([]*procHandle, error) {
	stages := p.stages
	handles := make([]*procHandle, 0, len(stages))

	curIn := stdin
	var prevRead *os.File

	for i, stage := range stages {
		var curOut *os.File
		var pw, pr *os.File
		last := i == len(stages)-1
		if last {
			curOut = stdout
		} else {
			var err error
			pr, pw, err = os.Pipe()
			if err != nil {
				if prevRead != nil {
					prevRead.Close()
				}
				return nil, &IoError{Op: "pipe", Err: err}
			}
			curOut = pw
		}

		h, err := spawnCmd(sc, stage, curIn, curOut, stderr, isRoot)
		if prevRead != nil {
			prevRead.Close()
		}
		if !last {
			pw.Close()
		}
		if err != nil {
			if !last {
				pr.Close()
			}
			return nil, err
		}
		handles = append(handles, h)
		curIn = pr
		prevRead = pr
	}
	return handles, nil
}

// spawnCmd resolves cmd's argv (realizing any argument-position process
// substitutions along the way), builds its fd operation sequence, hands it
// to fdplan.Simulate, realizes the resulting table into concrete open
// files, and starts the process via os.StartProcess so every descriptor —
// including deliberately closed ones — lands exactly where the fd-table
// says it should.
func spawnCmd(sc *spawnCtx, cmd *Cmd, stdin, stdout, stderr *os.File, isRoot bool) (*procHandle, error) {
	usedFds := map[int]bool{STDIN: true, STDOUT: true, STDERR: true}
	for _, op := range cmd.fdOps {
		if fd, ok := fdOpTarget(op); ok {
			usedFds[fd] = true
		}
	}
	nextFd := 3
	allocFd := func() int {
		for usedFds[nextFd] {
			nextFd++
		}
		usedFds[nextFd] = true
		return nextFd
	}

	var ops []fdplan.Op
	var localFiles []*os.File // opened/created only for this spawn; closed once StartProcess returns

	argv := make([]string, 0, len(cmd.argv))
	for _, a := range cmd.argv {
		if a.sub == nil {
			argv = append(argv, a.lit)
			continue
		}
		fd := allocFd()
		f, err := spawnSubstitution(sc, a.sub.Dir, a.sub.Cmd)
		if err != nil {
			closeAll(localFiles)
			return nil, err
		}
		localFiles = append(localFiles, f)
		ops = append(ops, fdplan.Op{Kind: fdplan.OpSetInherited, Fd: fd, Handle: f})
		argv = append(argv, fmt.Sprintf("/dev/fd/%d", fd))
	}

	for _, op := range cmd.fdOps {
		fop, files, err := lowerFdOp(sc, cmd, op)
		if err != nil {
			closeAll(localFiles)
			return nil, err
		}
		localFiles = append(localFiles, files...)
		ops = append(ops, fop)
	}

	entry := fdplan.Table{
		STDIN:  entrySource(stdin),
		STDOUT: entrySource(stdout),
		STDERR: entrySource(stderr),
	}
	final, live := fdplan.Simulate(entry, ops)

	width := 0
	for _, fd := range live {
		if fd+1 > width {
			width = fd + 1
		}
	}
	files := make([]*os.File, width)
	for _, fd := range live {
		src := final[fd]
		switch src.Kind {
		case fdplan.KindInherited:
			files[fd] = src.Handle.(*os.File)
		case fdplan.KindFile:
			f, err := os.OpenFile(src.Path, src.Flags, 0o644)
			if err != nil {
				closeAll(localFiles)
				return nil, &IoError{Op: "open " + src.Path, Err: err}
			}
			localFiles = append(localFiles, f)
			files[fd] = f
		}
	}

	if len(argv) == 0 {
		closeAll(localFiles)
		return nil, &InternalInvariantViolation{Msg: "command has empty argv"}
	}
	path, err := lookupExecutable(argv[0], cmd.env)
	if err != nil {
		closeAll(localFiles)
		return nil, err
	}

	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Dir:   cmd.cwd,
		Env:   resolveEnv(cmd.env),
		Files: files,
	})
	closeAll(localFiles)
	if err != nil {
		return nil, &SpawnError{Argv: argv, Err: err}
	}

	h := &procHandle{proc: proc, argv: argv, isSubst: !isRoot}
	sc.tree.addProc(h, isRoot)
	return h, nil
}

func entrySource(f *os.File) fdplan.Source {
	if f == nil {
		return fdplan.Source{Kind: fdplan.KindClosed}
	}
	return fdplan.Source{Kind: fdplan.KindInherited, Handle: f}
}

func fdOpTarget(op FdOp) (int, bool) {
	switch v := op.(type) {
	case *opToFile:
		return v.Fd, true
	case *opFromFile:
		return v.Fd, true
	case *opFromData:
		return v.Fd, true
	case *opToFd:
		return v.Dst, true
	case *opClose:
		return v.Fd, true
	case *opFromSub:
		return v.Fd, true
	case *opToSub:
		return v.Fd, true
	default:
		return 0, false
	}
}

// lowerFdOp translates one FdOp into an fdplan.Op, spawning any nested
// process-substitution node it references. Returned files are this call's
// own local resources (opened redirects or substitution pipe ends) that
// the caller must close once the surrounding spawn has started.
func lowerFdOp(sc *spawnCtx, cmd *Cmd, op FdOp) (fdplan.Op, []*os.File, error) {
	switch v := op.(type) {
	case *opToFile:
		flags := os.O_WRONLY | os.O_CREATE
		if v.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		return fdplan.Op{Kind: fdplan.OpToFile, Fd: v.Fd, Path: resolveRedirectPath(v.Path, cmd.cwd), Flags: flags}, nil, nil
	case *opFromFile:
		return fdplan.Op{Kind: fdplan.OpToFile, Fd: v.Fd, Path: resolveRedirectPath(v.Path, cmd.cwd), Flags: os.O_RDONLY}, nil, nil
	case *opToFd:
		return fdplan.Op{Kind: fdplan.OpToFd, Fd: v.Dst, Src: v.Src}, nil, nil
	case *opClose:
		return fdplan.Op{Kind: fdplan.OpClose, Fd: v.Fd}, nil, nil
	case *opFromData:
		r, w, err := os.Pipe()
		if err != nil {
			return fdplan.Op{}, nil, &IoError{Op: "pipe", Err: err}
		}
		sc.tree.runFeeder(func() error { return asyncio.WriteAll(w, v.Data) })
		return fdplan.Op{Kind: fdplan.OpSetInherited, Fd: v.Fd, Handle: r}, []*os.File{r}, nil
	case *opFromSub:
		f, err := spawnSubstitution(sc, SubDirIn, v.Cmd)
		if err != nil {
			return fdplan.Op{}, nil, err
		}
		return fdplan.Op{Kind: fdplan.OpSetInherited, Fd: v.Fd, Handle: f}, []*os.File{f}, nil
	case *opToSub:
		f, err := spawnSubstitution(sc, SubDirOut, v.Cmd)
		if err != nil {
			return fdplan.Op{}, nil, err
		}
		return fdplan.Op{Kind: fdplan.OpSetInherited, Fd: v.Fd, Handle: f}, []*os.File{f}, nil
	default:
		return fdplan.Op{}, nil, &InternalInvariantViolation{Msg: fmt.Sprintf("unknown FdOp type %T", op)}
	}
}

// spawnSubstitution spawns node as a process-substitution helper (never a
// root proc) and returns the end of a fresh pipe the caller should install
// at its own chosen fd: for SubDirIn, the read end that yields node's
// stdout; for SubDirOut, the write end that node reads as its stdin. The
// helper's other two descriptors inherit the top-level stdio.
func spawnSubstitution(sc *spawnCtx, dir SubDir, node Node) (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, &IoError{Op: "pipe", Err: err}
	}
	var stdin, stdout, keep *os.File
	var drop *os.File
	if dir == SubDirIn {
		stdin, stdout = sc.topStdin, w
		keep, drop = r, w
	} else {
		stdin, stdout = r, sc.topStdout
		keep, drop = w, r
	}
	if _, err := spawnNode(sc, node, stdin, stdout, sc.topStderr, false); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	drop.Close()
	return keep, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

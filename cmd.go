package pipex

import "fmt"

// SubDir is the direction of a process substitution: does the helper
// process produce output the consumer reads (SubDirIn), or does it consume
// input the consumer writes (SubDirOut)?
type SubDir int

const (
	// SubDirIn wires the helper's stdout to the pipe the consumer reads.
	SubDirIn SubDir = iota
	// SubDirOut wires the helper's stdin to the pipe the consumer writes.
	SubDirOut
)

// SubRef is a process-substitution reference: a nested Node whose stdout or
// stdin is exposed as a descriptor rather than run inline.
type SubRef struct {
	Dir SubDir
	Cmd Node
}

// Arg is one atom of a Cmd's argv. It is either a literal string (built with
// A or Path) or a process-substitution reference (built with SubIn/SubOut).
// Arg is a closed value type; callers never construct the zero value with a
// nil literal and a nil sub.
type Arg struct {
	lit string
	sub *SubRef
}

// A builds a literal argument atom.
func A(s string) Arg { return Arg{lit: s} }

// Path builds a literal argument atom from anything that stringifies to a
// path, normalizing path-likes to plain strings.
func Path(p fmt.Stringer) Arg { return Arg{lit: p.String()} }

// SubIn builds an argument-position input process substitution: the
// argument is resolved to a /dev/fd/N path that yields cmd's stdout.
func SubIn(cmd Node) Arg { return Arg{sub: &SubRef{Dir: SubDirIn, Cmd: cmd}} }

// SubOut builds an argument-position output process substitution: the
// argument is resolved to a /dev/fd/N path that cmd reads as its stdin.
func SubOut(cmd Node) Arg { return Arg{sub: &SubRef{Dir: SubDirOut, Cmd: cmd}} }

// Cmd is an immutable description of a single external command: its argv,
// its fd operations, and optionally an overridden environment and working
// directory. Every builder method returns a new Cmd; none mutate the
// receiver.
type Cmd struct {
	argv  []Arg
	fdOps []FdOp
	env   map[string]string // nil means "inherit parent environment verbatim"
	cwd   string            // "" means "inherit parent cwd"
}

func (*Cmd) isNode() {}

// New builds a Cmd from a program name and literal arguments.
func New(name string, args ...string) *Cmd {
	argv := make([]Arg, 0, len(args)+1)
	argv = append(argv, A(name))
	for _, a := range args {
		argv = append(argv, A(a))
	}
	return &Cmd{argv: argv}
}

// clone makes a defensive copy of the mutable-looking fields so builder
// methods never let two Cmd values alias the same backing array.
func (c *Cmd) clone() *Cmd {
	n := &Cmd{cwd: c.cwd}
	if c.argv != nil {
		n.argv = append([]Arg(nil), c.argv...)
	}
	if c.fdOps != nil {
		n.fdOps = append([]FdOp(nil), c.fdOps...)
	}
	if c.env != nil {
		n.env = make(map[string]string, len(c.env))
		for k, v := range c.env {
			n.env[k] = v
		}
	}
	return n
}

// WithArgs returns a new Cmd with additional literal arguments appended.
func (c *Cmd) WithArgs(args ...string) *Cmd {
	n := c.clone()
	for _, a := range args {
		n.argv = append(n.argv, A(a))
	}
	return n
}

// WithArg returns a new Cmd with a single argument atom appended, which may
// be a process substitution built with SubIn/SubOut.
func (c *Cmd) WithArg(a Arg) *Cmd {
	n := c.clone()
	n.argv = append(n.argv, a)
	return n
}

// WithFdOp returns a new Cmd with an fd operation appended to the sequence
// applied to the child's fd table (see FdOp and the fd-table simulator in
// internal/fdplan). Operations apply left to right; a later op targeting the
// same destination fd overrides an earlier one.
func (c *Cmd) WithFdOp(op FdOp) *Cmd {
	n := c.clone()
	n.fdOps = append(n.fdOps, op)
	return n
}

// WithEnv returns a new Cmd whose child environment is the parent's
// environment with the given mapping applied over it — not a fresh,
// from-scratch environment.
func (c *Cmd) WithEnv(env map[string]string) *Cmd {
	n := c.clone()
	if n.env == nil {
		n.env = make(map[string]string, len(env))
	}
	for k, v := range env {
		n.env[k] = v
	}
	return n
}

// WithCwd returns a new Cmd with the given working directory. Relative
// redirect targets on this Cmd resolve against dir.
func (c *Cmd) WithCwd(dir string) *Cmd {
	n := c.clone()
	n.cwd = dir
	return n
}

// WithStdoutFile is shorthand for WithFdOp(FdToFile(STDOUT, path, false)).
func (c *Cmd) WithStdoutFile(path string) *Cmd {
	return c.WithFdOp(FdToFile(STDOUT, path, false))
}

// WithAppendStdoutFile is shorthand for WithFdOp(FdToFile(STDOUT, path, true)).
func (c *Cmd) WithAppendStdoutFile(path string) *Cmd {
	return c.WithFdOp(FdToFile(STDOUT, path, true))
}

// WithStdinFile is shorthand for WithFdOp(FdFromFile(STDIN, path)).
func (c *Cmd) WithStdinFile(path string) *Cmd {
	return c.WithFdOp(FdFromFile(STDIN, path))
}

// WithStdinData is shorthand for WithFdOp(FdFromData(STDIN, data)).
func (c *Cmd) WithStdinData(data []byte) *Cmd {
	return c.WithFdOp(FdFromData(STDIN, data))
}

package pipex

// Pipeline is an immutable ordered sequence of at least two stages. A stage
// supplied to NewPipeline may itself be a Pipeline; nested pipelines are
// flattened at construction so `A | (B | C)` and `(A | B) | C` produce the
// same stored stage list `[A, B, C]`, and only Cmds are ever stored.
type Pipeline struct {
	stages []*Cmd
}

func (*Pipeline) isNode() {}

// Stages returns the flattened, ordered list of commands this pipeline
// executes. The returned slice is a defensive copy.
func (p *Pipeline) Stages() []*Cmd {
	out := make([]*Cmd, len(p.stages))
	copy(out, p.stages)
	return out
}

// NewPipeline flattens and validates stages, returning an
// InternalInvariantViolation if fewer than two Cmds result.
func NewPipeline(stages ...Node) (*Pipeline, error) {
	flat := flattenStages(stages)
	if len(flat) < 2 {
		return nil, &InternalInvariantViolation{Msg: "pipeline requires at least two stages"}
	}
	return &Pipeline{stages: flat}, nil
}

func flattenStages(nodes []Node) []*Cmd {
	var out []*Cmd
	for _, n := range nodes {
		switch v := n.(type) {
		case *Cmd:
			out = append(out, v)
		case *Pipeline:
			out = append(out, v.stages...)
		}
	}
	return out
}

package pipex

// Node is anything Prepare can execute: a Cmd or a Pipeline.
type Node interface {
	isNode()
}

// Package filter implements an in-process audio transform engine. A graph
// consists of nodes linked by pads. Frames are pushed into source nodes and
// pulled from sink nodes, pulls propagate upstream. When a source has no
// frame buffered, the pull fails with audiomix.ErrNeedMore and the source
// counts a failed request, so the caller knows which input to feed.
package filter

import (
	"errors"
	"fmt"
	"io"

	"github.com/pipelined/audiomix"
)

// Engine errors.
var (
	ErrUnknownKind    = errors.New("unknown filter kind")
	ErrNotInitialized = errors.New("node is not initialized")
	ErrInitialized    = errors.New("node is already initialized")
	ErrNotConfigured  = errors.New("graph is not configured")
	ErrConfigured     = errors.New("graph is already configured")
	ErrInvalidPad     = errors.New("invalid pad")
	ErrPadLinked      = errors.New("pad is already linked")
	ErrUnlinked       = errors.New("pad is not linked")
	ErrForeignNode    = errors.New("nodes belong to different graphs")
	ErrCycle          = errors.New("graph has a cycle")
	ErrFormat         = errors.New("incompatible formats")
	ErrNotSource      = errors.New("node is not a source")
	ErrNotSink        = errors.New("node is not a sink")
	ErrClosed         = errors.New("source is closed")
	ErrFreed          = errors.New("graph is freed")
)

// filter is implemented by every node kind.
type filter interface {
	// init applies string parameters.
	init(a args) error
	// pads returns number of input and output pads.
	pads() (in, out int)
	// configure resolves output format. Inputs are configured already.
	configure(n *Node) error
	// pull returns next frame for output pad.
	pull(n *Node, pad int) (*audiomix.Frame, error)
}

var kinds = map[string]func() filter{}

// register makes filter kind available for allocation.
func register(kind string, fn func() filter) {
	kinds[kind] = fn
}

// Kinds returns names of all registered filter kinds.
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	return names
}

// Graph holds nodes and their links.
type Graph struct {
	audiomix.UID
	nodes      []*Node
	configured bool
	freed      bool
}

type link struct {
	src *Node
	pad int
}

// Node is an instance of filter inside a graph.
type Node struct {
	name    string
	kind    string
	graph   *Graph
	impl    filter
	inited  bool
	inputs  []link
	outputs []*Node
	format  audiomix.Format
	state   int
}

// NewGraph allocates an empty graph.
func NewGraph() *Graph {
	return &Graph{UID: audiomix.NewUID()}
}

// Alloc allocates a new node of provided kind. Name is optional and used
// for error reporting.
func (g *Graph) Alloc(kind, name string) (*Node, error) {
	if g.freed {
		return nil, ErrFreed
	}
	if g.configured {
		return nil, ErrConfigured
	}
	fn, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if name == "" {
		name = fmt.Sprintf("%s_%d", kind, len(g.nodes))
	}
	n := &Node{
		name:  name,
		kind:  kind,
		graph: g,
		impl:  fn(),
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// Len returns number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Free releases all nodes. Graph cannot be used after this call.
func (g *Graph) Free() {
	for _, n := range g.nodes {
		n.impl = nil
		n.inputs = nil
		n.outputs = nil
	}
	g.nodes = nil
	g.freed = true
}

// Name returns node name.
func (n *Node) Name() string {
	return n.name
}

// Kind returns node kind.
func (n *Node) Kind() string {
	return n.kind
}

// Format returns output format of configured node.
func (n *Node) Format() audiomix.Format {
	return n.format
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.name, n.kind)
}

// Init applies string parameters to the node. Parameters have form of
// key=value pairs separated by colons, values without keys are positional.
func (n *Node) Init(params string) error {
	if n.inited {
		return ErrInitialized
	}
	a, err := parseArgs(params)
	if err != nil {
		return fmt.Errorf("%v: %w", n, err)
	}
	if err := n.impl.init(a); err != nil {
		return fmt.Errorf("%v: %w", n, err)
	}
	if err := a.unused(); err != nil {
		return fmt.Errorf("%v: %w", n, err)
	}
	in, out := n.impl.pads()
	n.inputs = make([]link, in)
	n.outputs = make([]*Node, out)
	n.inited = true
	return nil
}

// Link connects output pad of src with input pad of dst.
func Link(src *Node, srcPad int, dst *Node, dstPad int) error {
	if src.graph != dst.graph {
		return ErrForeignNode
	}
	if src.graph.configured {
		return ErrConfigured
	}
	if !src.inited || !dst.inited {
		return ErrNotInitialized
	}
	if srcPad < 0 || srcPad >= len(src.outputs) {
		return fmt.Errorf("%w: %v output %d", ErrInvalidPad, src, srcPad)
	}
	if dstPad < 0 || dstPad >= len(dst.inputs) {
		return fmt.Errorf("%w: %v input %d", ErrInvalidPad, dst, dstPad)
	}
	if src.outputs[srcPad] != nil {
		return fmt.Errorf("%w: %v output %d", ErrPadLinked, src, srcPad)
	}
	if dst.inputs[dstPad].src != nil {
		return fmt.Errorf("%w: %v input %d", ErrPadLinked, dst, dstPad)
	}
	src.outputs[srcPad] = dst
	dst.inputs[dstPad] = link{src: src, pad: srcPad}
	return nil
}

// node visiting states used to detect cycles.
const (
	unvisited = iota
	visiting
	visited
)

// Config validates links and resolves formats. Graph accepts frames only
// after successful configuration.
func (g *Graph) Config() error {
	if g.freed {
		return ErrFreed
	}
	if g.configured {
		return ErrConfigured
	}
	for _, n := range g.nodes {
		if !n.inited {
			return fmt.Errorf("%v: %w", n, ErrNotInitialized)
		}
		for i := range n.inputs {
			if n.inputs[i].src == nil {
				return fmt.Errorf("%w: %v input %d", ErrUnlinked, n, i)
			}
		}
		for i := range n.outputs {
			if n.outputs[i] == nil {
				return fmt.Errorf("%w: %v output %d", ErrUnlinked, n, i)
			}
		}
	}
	for _, n := range g.nodes {
		if err := n.resolve(); err != nil {
			return err
		}
	}
	g.configured = true
	return nil
}

func (n *Node) resolve() error {
	switch n.state {
	case visited:
		return nil
	case visiting:
		return fmt.Errorf("%w: %v", ErrCycle, n)
	}
	n.state = visiting
	for _, in := range n.inputs {
		if err := in.src.resolve(); err != nil {
			return err
		}
	}
	if err := n.impl.configure(n); err != nil {
		return fmt.Errorf("%v: %w", n, err)
	}
	n.state = visited
	return nil
}

// input returns format of input pad.
func (n *Node) input(i int) audiomix.Format {
	return n.inputs[i].src.format
}

// pullInput pulls a frame from the input pad.
func (n *Node) pullInput(i int) (*audiomix.Frame, error) {
	l := n.inputs[i]
	return l.src.impl.pull(l.src, l.pad)
}

func (n *Node) ready() error {
	if n.graph.freed {
		return ErrFreed
	}
	if !n.graph.configured {
		return ErrNotConfigured
	}
	return nil
}

// Push adds a frame to the source node. Nil frame marks end of stream.
func (n *Node) Push(f *audiomix.Frame) error {
	if err := n.ready(); err != nil {
		return err
	}
	s, ok := n.impl.(*source)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotSource, n)
	}
	return s.push(n, f)
}

// FailedRequests returns number of pulls the source couldn't serve since
// the last push.
func (n *Node) FailedRequests() int {
	if s, ok := n.impl.(*source); ok {
		return s.failed
	}
	return 0
}

// Pull returns next frame from the sink node. It returns
// audiomix.ErrNeedMore if more input is required and io.EOF when all
// inputs are exhausted.
func (n *Node) Pull() (*audiomix.Frame, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	s, ok := n.impl.(*sink)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotSink, n)
	}
	return s.pull(n, 0)
}

// isEOF reports whether error is end of stream.
func isEOF(err error) bool {
	return err == io.EOF
}

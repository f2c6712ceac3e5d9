// Package graph provides unit graphs: directed acyclic graphs of
// signal-processing nodes rendered block-by-block.
//
// A graph is described with a Spec value and compiled with New. All
// configuration faults surface at compile time, the render path never
// fails. Parameter changes are staged and take effect at the next render
// call, never mid-block.
package graph

import (
	"errors"
	"fmt"
)

// Configuration errors returned by New and SetParam, wrapped into ConfigError.
var (
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrUnknownParam    = errors.New("unknown parameter")
	ErrUnknownNode     = errors.New("unknown node")
	ErrDuplicateNode   = errors.New("duplicate node id")
	ErrCycle           = errors.New("cycle in graph")
	ErrNoOutput        = errors.New("output node not defined")
	ErrSampleRate      = errors.New("sample rate not defined")
	ErrBufferSize      = errors.New("buffer size not defined")
	ErrInputRequired   = errors.New("audio input required")
	ErrInputNotAllowed = errors.New("audio input not allowed")
	ErrNotModulatable  = errors.New("parameter cannot be modulated")
)

// ConfigError is returned when a graph spec cannot be compiled.
type ConfigError struct {
	Node string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Node == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("node %v: %v", e.Node, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(node string, err error) error {
	return &ConfigError{Node: node, Err: err}
}

type (
	// Spec describes a unit graph: a DAG of typed nodes with one
	// designated output node.
	Spec struct {
		SampleRate int
		Nodes      []NodeSpec
		Out        string
	}

	// NodeSpec is a tagged-variant node definition. Params hold constant
	// parameter values, Mods bind parameters to control-rate outputs of
	// other nodes, In lists audio inputs which are summed before
	// processing.
	NodeSpec struct {
		ID     string
		Type   NodeType
		Params map[string]float64
		Mods   map[string]string
		In     []string
	}

	// Graph is a compiled unit graph. It is owned by a single goroutine:
	// all methods must be called from the render loop.
	Graph struct {
		sampleRate int
		bufferSize int
		nodes      []*node // topological order
		index      map[string]*node
		out        *node
		pending    []paramChange
		released   bool
	}

	paramChange struct {
		node  *node
		name  string
		value float64
	}
)

// New validates and compiles the spec. Buffer size defines the maximum
// block rendered in one pass; longer renders are split internally. All
// per-node buffers are allocated here, the render path is allocation-free.
func New(spec Spec, bufferSize int) (*Graph, error) {
	if spec.SampleRate <= 0 {
		return nil, configError("", ErrSampleRate)
	}
	if bufferSize <= 0 {
		return nil, configError("", ErrBufferSize)
	}
	if spec.Out == "" {
		return nil, configError("", ErrNoOutput)
	}

	g := &Graph{
		sampleRate: spec.SampleRate,
		bufferSize: bufferSize,
		index:      make(map[string]*node),
	}
	// build nodes
	for _, ns := range spec.Nodes {
		if _, ok := g.index[ns.ID]; ok {
			return nil, configError(ns.ID, ErrDuplicateNode)
		}
		u, err := newUnit(ns, spec.SampleRate, bufferSize)
		if err != nil {
			return nil, err
		}
		n := &node{
			id:   ns.ID,
			typ:  ns.Type,
			unit: u,
			out:  u.output(),
		}
		g.index[ns.ID] = n
	}
	// resolve edges
	ordered, err := g.wire(spec)
	if err != nil {
		return nil, err
	}
	g.nodes = ordered
	g.out = g.index[spec.Out]
	return g, nil
}

// wire resolves audio inputs and modulation references and returns nodes
// in evaluation order.
func (g *Graph) wire(spec Spec) ([]*node, error) {
	if _, ok := g.index[spec.Out]; !ok {
		return nil, configError(spec.Out, ErrUnknownNode)
	}
	for _, ns := range spec.Nodes {
		n := g.index[ns.ID]
		// audio inputs
		if len(ns.In) > 0 && !acceptsInput(ns.Type) {
			return nil, configError(ns.ID, ErrInputNotAllowed)
		}
		if len(ns.In) == 0 && acceptsInput(ns.Type) {
			return nil, configError(ns.ID, ErrInputRequired)
		}
		for _, id := range ns.In {
			src, ok := g.index[id]
			if !ok {
				return nil, configError(ns.ID, fmt.Errorf("input %v: %w", id, ErrUnknownNode))
			}
			n.ins = append(n.ins, src)
		}
		switch len(n.ins) {
		case 0:
		case 1:
			n.unit.connect(n.ins[0].out)
		default:
			// multiple inputs are summed into a scratch buffer
			n.in = make([]float64, g.bufferSize)
			n.unit.connect(n.in)
		}
		// modulations
		for name, id := range ns.Mods {
			if !modulatable(ns.Type, name) {
				return nil, configError(ns.ID, fmt.Errorf("%v: %w", name, ErrNotModulatable))
			}
			src, ok := g.index[id]
			if !ok {
				return nil, configError(ns.ID, fmt.Errorf("mod %v: %w", id, ErrUnknownNode))
			}
			n.unit.modulate(name, src.out)
			n.modded = append(n.modded, src)
		}
	}
	return g.sort(spec)
}

// sort returns nodes in topological order, detecting cycles.
func (g *Graph) sort(spec Spec) ([]*node, error) {
	indegree := make(map[*node]int, len(g.index))
	successors := make(map[*node][]*node, len(g.index))
	for _, ns := range spec.Nodes {
		n := g.index[ns.ID]
		for _, src := range n.ins {
			successors[src] = append(successors[src], n)
			indegree[n]++
		}
		for _, src := range n.modded {
			successors[src] = append(successors[src], n)
			indegree[n]++
		}
	}
	ready := make([]*node, 0, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		if n := g.index[ns.ID]; indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	ordered := make([]*node, 0, len(spec.Nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		ordered = append(ordered, n)
		for _, next := range successors[n] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(ordered) != len(spec.Nodes) {
		return nil, configError("", ErrCycle)
	}
	return ordered, nil
}

// Render fills out with the next samples of the graph. Requested length
// can be arbitrary: longer blocks are processed in buffer-size passes.
// Parameters staged since the previous call take effect here.
func (g *Graph) Render(out []float64) {
	for _, c := range g.pending {
		// validated at staging, cannot fail here
		_ = c.node.unit.set(c.name, c.value)
	}
	g.pending = g.pending[:0]

	rendered := 0
	for rendered < len(out) {
		frames := len(out) - rendered
		if frames > g.bufferSize {
			frames = g.bufferSize
		}
		for _, n := range g.nodes {
			n.process(frames)
		}
		copy(out[rendered:rendered+frames], g.out.out[:frames])
		rendered += frames
	}
}

// SetParam stages a parameter change to be applied at the next render
// call. Unknown node or parameter fails synchronously.
func (g *Graph) SetParam(nodeID, name string, value float64) error {
	n, ok := g.index[nodeID]
	if !ok {
		return configError(nodeID, ErrUnknownNode)
	}
	if !validParam(n.typ, name) {
		return configError(nodeID, fmt.Errorf("%v: %w", name, ErrUnknownParam))
	}
	g.pending = append(g.pending, paramChange{node: n, name: name, value: value})
	return nil
}

// Release releases all envelopes of the graph. The graph keeps rendering
// until Done reports true.
func (g *Graph) Release() {
	g.released = true
	for _, n := range g.nodes {
		if e, ok := n.unit.(*envelope); ok {
			e.release()
		}
	}
}

// Done returns true when the graph was released and all envelopes have
// decayed. A graph without envelopes is done right after release.
func (g *Graph) Done() bool {
	if !g.released {
		return false
	}
	for _, n := range g.nodes {
		if e, ok := n.unit.(*envelope); ok && !e.done() {
			return false
		}
	}
	return true
}

// NumNodes returns number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// SampleRate returns the rate the graph was compiled for.
func (g *Graph) SampleRate() int {
	return g.sampleRate
}

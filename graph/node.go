package graph

// NodeType is a tag of a node variant.
type NodeType int

// Node variants with a fixed capability set. Oscillators, noise and
// envelope are generators: they accept no audio input. Lowpass, delay
// and gain process summed audio input. Envelope output is control-rate:
// it is meant to modulate parameters of other nodes.
const (
	Sine NodeType = iota
	Saw
	Square
	Triangle
	Noise
	Lowpass
	Delay
	Gain
	Env
)

func (t NodeType) String() string {
	switch t {
	case Sine:
		return "sine"
	case Saw:
		return "saw"
	case Square:
		return "square"
	case Triangle:
		return "triangle"
	case Noise:
		return "noise"
	case Lowpass:
		return "lowpass"
	case Delay:
		return "delay"
	case Gain:
		return "gain"
	case Env:
		return "env"
	}
	return "unknown"
}

// unit is a compiled node processor. Units are wired once at compile
// time and then only processed.
type unit interface {
	process(frames int)
	set(name string, value float64) error
	output() []float64
	connect(in []float64)
	modulate(name string, src []float64)
}

// node wraps a unit with its graph edges.
type node struct {
	id     string
	typ    NodeType
	unit   unit
	out    []float64
	ins    []*node
	modded []*node
	in     []float64 // summing scratch, used with more than one input
}

func (n *node) process(frames int) {
	if n.in != nil {
		for i := 0; i < frames; i++ {
			var sum float64
			for _, src := range n.ins {
				sum += src.out[i]
			}
			n.in[i] = sum
		}
	}
	n.unit.process(frames)
}

// params lists valid parameter names per node type.
var params = map[NodeType][]string{
	Sine:     {"freq", "amp", "phase"},
	Saw:      {"freq", "amp", "phase"},
	Square:   {"freq", "amp", "phase"},
	Triangle: {"freq", "amp", "phase"},
	Noise:    {"amp", "seed"},
	Lowpass:  {"cutoff"},
	Delay:    {"time", "feedback", "mix"},
	Gain:     {"gain"},
	Env:      {"attack", "release"},
}

// mods lists parameters which accept control-rate modulation.
var mods = map[NodeType][]string{
	Sine:     {"freq", "amp"},
	Saw:      {"freq", "amp"},
	Square:   {"freq", "amp"},
	Triangle: {"freq", "amp"},
	Noise:    {"amp"},
	Gain:     {"gain"},
}

func validType(t NodeType) bool {
	_, ok := params[t]
	return ok
}

func validParam(t NodeType, name string) bool {
	for _, p := range params[t] {
		if p == name {
			return true
		}
	}
	return false
}

func modulatable(t NodeType, name string) bool {
	for _, p := range mods[t] {
		if p == name {
			return true
		}
	}
	return false
}

func acceptsInput(t NodeType) bool {
	switch t {
	case Lowpass, Delay, Gain:
		return true
	}
	return false
}

// newUnit builds a unit for the node spec with defaults applied and
// validates all parameter names.
func newUnit(ns NodeSpec, sampleRate, bufferSize int) (unit, error) {
	if !validType(ns.Type) {
		return nil, configError(ns.ID, ErrUnknownNodeType)
	}
	for name := range ns.Params {
		if !validParam(ns.Type, name) {
			return nil, configError(ns.ID, &paramError{name: name})
		}
	}
	var u unit
	switch ns.Type {
	case Sine, Saw, Square, Triangle:
		u = newOsc(ns.Type, sampleRate, bufferSize)
	case Noise:
		u = newNoise(bufferSize)
	case Lowpass:
		u = newLowpass(sampleRate, bufferSize)
	case Delay:
		u = newDelay(sampleRate, bufferSize, ns.Params["time"])
	case Gain:
		u = newGain(bufferSize)
	case Env:
		u = newEnvelope(sampleRate, bufferSize)
	}
	for name, value := range ns.Params {
		if err := u.set(name, value); err != nil {
			return nil, configError(ns.ID, err)
		}
	}
	return u, nil
}

type paramError struct {
	name string
}

func (e *paramError) Error() string {
	return e.name + ": " + ErrUnknownParam.Error()
}

func (e *paramError) Unwrap() error {
	return ErrUnknownParam
}

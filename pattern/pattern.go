// Package pattern provides lazy, possibly-infinite sequences of values.
//
// Patterns are immutable sequence definitions. Position within a sequence
// is held in an explicit State value returned by every pull, so multiple
// consumers of the same pattern never interfere with each other. A pattern
// over a finite base wrapped with Cycle never terminates and is safe for
// pull-based consumption, one value per scheduled step.
package pattern

type (
	// State is an opaque position within a pattern. States are values:
	// advancing a pattern returns a new state and leaves the old one valid.
	State interface{}

	// Pattern is a lazy sequence of values.
	//
	// Next returns the value at the state position, the advanced state and
	// true, or ok=false when the sequence is exhausted. Implementations
	// must not mutate the passed state.
	Pattern interface {
		Start() State
		Next(s State) (value float64, next State, ok bool)
	}
)

// Seq returns a finite pattern over provided values.
func Seq(values ...float64) Pattern {
	return seq(values)
}

type seq []float64

func (p seq) Start() State {
	return 0
}

func (p seq) Next(s State) (float64, State, bool) {
	i := s.(int)
	if i >= len(p) {
		return 0, s, false
	}
	return p[i], i + 1, true
}

// Cycle returns an infinite pattern which restarts the base pattern
// every time it is exhausted. Cycle over an empty base is exhausted
// immediately.
func Cycle(base Pattern) Pattern {
	return cycle{base: base}
}

type cycle struct {
	base Pattern
}

func (p cycle) Start() State {
	return p.base.Start()
}

func (p cycle) Next(s State) (float64, State, bool) {
	if v, next, ok := p.base.Next(s); ok {
		return v, next, true
	}
	// restart, guard against empty base
	v, next, ok := p.base.Next(p.base.Start())
	if !ok {
		return 0, s, false
	}
	return v, next, true
}

// Range returns a finite arithmetic pattern: from, from+step, ... up to
// but not including to. Step sign is normalized to the direction of the
// range. Zero step yields an exhausted pattern.
func Range(from, to, step float64) Pattern {
	if step == 0 {
		return Seq()
	}
	if (to-from)*step < 0 {
		step = -step
	}
	return rng{from: from, to: to, step: step}
}

type rng struct {
	from, to, step float64
}

func (p rng) Start() State {
	return p.from
}

func (p rng) Next(s State) (float64, State, bool) {
	v := s.(float64)
	if (p.step > 0 && v >= p.to) || (p.step < 0 && v <= p.to) {
		return 0, s, false
	}
	return v, v + p.step, true
}

// Transform returns a pattern with fn applied to every value of the base.
func Transform(base Pattern, fn func(float64) float64) Pattern {
	return transform{base: base, fn: fn}
}

type transform struct {
	base Pattern
	fn   func(float64) float64
}

func (p transform) Start() State {
	return p.base.Start()
}

func (p transform) Next(s State) (float64, State, bool) {
	v, next, ok := p.base.Next(s)
	if !ok {
		return 0, s, false
	}
	return p.fn(v), next, true
}

// Take returns a pattern with at most n values of the base. It bounds
// infinite patterns.
func Take(base Pattern, n int) Pattern {
	return take{base: base, n: n}
}

type take struct {
	base Pattern
	n    int
}

type takeState struct {
	inner State
	taken int
}

func (p take) Start() State {
	return takeState{inner: p.base.Start()}
}

func (p take) Next(s State) (float64, State, bool) {
	ts := s.(takeState)
	if ts.taken >= p.n {
		return 0, s, false
	}
	v, next, ok := p.base.Next(ts.inner)
	if !ok {
		return 0, s, false
	}
	return v, takeState{inner: next, taken: ts.taken + 1}, true
}

// Concat returns a pattern which plays base patterns one after another.
func Concat(patterns ...Pattern) Pattern {
	return concat(patterns)
}

type concat []Pattern

type concatState struct {
	index int
	inner State
}

func (p concat) Start() State {
	if len(p) == 0 {
		return concatState{}
	}
	return concatState{inner: p[0].Start()}
}

func (p concat) Next(s State) (float64, State, bool) {
	cs := s.(concatState)
	for cs.index < len(p) {
		if v, next, ok := p[cs.index].Next(cs.inner); ok {
			return v, concatState{index: cs.index, inner: next}, true
		}
		cs.index++
		if cs.index < len(p) {
			cs.inner = p[cs.index].Start()
		}
	}
	return 0, s, false
}

// Collect pulls up to n values from the pattern. Used in tests and for
// bounded materialization of finite patterns.
func Collect(p Pattern, n int) []float64 {
	result := make([]float64, 0, n)
	s := p.Start()
	for len(result) < n {
		v, next, ok := p.Next(s)
		if !ok {
			break
		}
		result = append(result, v)
		s = next
	}
	return result
}

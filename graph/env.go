package graph

import "math"

const envQuiet = 1e-4

// envelope is an attack-release envelope. It rises towards 1 while held
// and decays towards 0 after release. Coefficients give 99% of the
// transition within the configured time.
type envelope struct {
	sampleRate float64
	attack     float64
	releaseT   float64
	up         float64
	down       float64
	x          float64
	released   bool
	out        []float64
}

func newEnvelope(sampleRate, bufferSize int) *envelope {
	e := &envelope{
		sampleRate: float64(sampleRate),
		out:        make([]float64, bufferSize),
	}
	e.setAttack(0.01)
	e.setRelease(0.1)
	return e
}

func (e *envelope) setAttack(t float64) {
	if t <= 0 {
		t = 1e-3
	}
	e.attack = t
	e.up = math.Pow(.01, 1/(e.sampleRate*t))
}

func (e *envelope) setRelease(t float64) {
	if t <= 0 {
		t = 1e-3
	}
	e.releaseT = t
	e.down = math.Pow(.01, 1/(e.sampleRate*t))
}

func (e *envelope) process(frames int) {
	for i := 0; i < frames; i++ {
		if e.released {
			e.x *= e.down
		} else {
			e.x = 1 - (1-e.x)*e.up
		}
		e.out[i] = e.x
	}
}

func (e *envelope) release() {
	e.released = true
}

func (e *envelope) done() bool {
	return e.released && e.x < envQuiet
}

func (e *envelope) set(name string, value float64) error {
	switch name {
	case "attack":
		e.setAttack(value)
	case "release":
		e.setRelease(value)
	default:
		return &paramError{name: name}
	}
	return nil
}

func (e *envelope) output() []float64 {
	return e.out
}

func (e *envelope) connect([]float64) {}

func (e *envelope) modulate(string, []float64) {}

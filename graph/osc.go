package graph

import (
	"math"
	"math/rand"
)

// osc is a band-unlimited oscillator. Phase is accumulated in [0, 1),
// the first rendered sample is taken at the configured initial phase.
type osc struct {
	shape      NodeType
	sampleRate float64
	freq       float64
	amp        float64
	phase      float64
	freqMod    []float64
	ampMod     []float64
	out        []float64
}

func newOsc(shape NodeType, sampleRate, bufferSize int) *osc {
	return &osc{
		shape:      shape,
		sampleRate: float64(sampleRate),
		freq:       440,
		amp:        1,
		out:        make([]float64, bufferSize),
	}
}

func (o *osc) process(frames int) {
	for i := 0; i < frames; i++ {
		freq := o.freq
		if o.freqMod != nil {
			freq *= o.freqMod[i]
		}
		amp := o.amp
		if o.ampMod != nil {
			amp *= o.ampMod[i]
		}
		switch o.shape {
		case Sine:
			o.out[i] = amp * math.Sin(2*math.Pi*o.phase)
		case Saw:
			o.out[i] = amp * (2*o.phase - 1)
		case Square:
			if o.phase < 0.5 {
				o.out[i] = amp
			} else {
				o.out[i] = -amp
			}
		case Triangle:
			o.out[i] = amp * (1 - 4*math.Abs(o.phase-0.5))
		}
		_, o.phase = math.Modf(o.phase + freq/o.sampleRate)
	}
}

func (o *osc) set(name string, value float64) error {
	switch name {
	case "freq":
		o.freq = value
	case "amp":
		o.amp = value
	case "phase":
		_, o.phase = math.Modf(value)
	default:
		return &paramError{name: name}
	}
	return nil
}

func (o *osc) output() []float64 {
	return o.out
}

func (o *osc) connect([]float64) {}

func (o *osc) modulate(name string, src []float64) {
	switch name {
	case "freq":
		o.freqMod = src
	case "amp":
		o.ampMod = src
	}
}

// noise generates white noise from its own deterministic source.
type noise struct {
	amp    float64
	rand   *rand.Rand
	ampMod []float64
	out    []float64
}

func newNoise(bufferSize int) *noise {
	return &noise{
		amp:  1,
		rand: rand.New(rand.NewSource(1)),
		out:  make([]float64, bufferSize),
	}
}

func (n *noise) process(frames int) {
	for i := 0; i < frames; i++ {
		amp := n.amp
		if n.ampMod != nil {
			amp *= n.ampMod[i]
		}
		n.out[i] = amp * (2*n.rand.Float64() - 1)
	}
}

func (n *noise) set(name string, value float64) error {
	switch name {
	case "amp":
		n.amp = value
	case "seed":
		n.rand = rand.New(rand.NewSource(int64(value)))
	default:
		return &paramError{name: name}
	}
	return nil
}

func (n *noise) output() []float64 {
	return n.out
}

func (n *noise) connect([]float64) {}

func (n *noise) modulate(name string, src []float64) {
	if name == "amp" {
		n.ampMod = src
	}
}

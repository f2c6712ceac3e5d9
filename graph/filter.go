package graph

import "math"

// lowpass is a one-pole lowpass filter.
type lowpass struct {
	sampleRate float64
	cutoff     float64
	a          float64
	y          float64
	in         []float64
	out        []float64
}

func newLowpass(sampleRate, bufferSize int) *lowpass {
	l := &lowpass{
		sampleRate: float64(sampleRate),
		out:        make([]float64, bufferSize),
	}
	l.setCutoff(1000)
	return l
}

func (l *lowpass) setCutoff(cutoff float64) {
	if cutoff < 1 {
		cutoff = 1
	}
	l.cutoff = cutoff
	l.a = 1 - math.Exp(-2*math.Pi*cutoff/l.sampleRate)
}

func (l *lowpass) process(frames int) {
	for i := 0; i < frames; i++ {
		l.y += l.a * (l.in[i] - l.y)
		l.out[i] = l.y
	}
}

func (l *lowpass) set(name string, value float64) error {
	if name != "cutoff" {
		return &paramError{name: name}
	}
	l.setCutoff(value)
	return nil
}

func (l *lowpass) output() []float64 {
	return l.out
}

func (l *lowpass) connect(in []float64) {
	l.in = in
}

func (l *lowpass) modulate(string, []float64) {}

const defaultDelayTime = 0.25

// delay is a feedback delay line. Feedback is bounded: the delay buffer
// capacity is fixed at compile time and the feedback coefficient is kept
// below 1, so this is the only legal form of feedback in a graph.
type delay struct {
	sampleRate float64
	buf        []float64
	pos        int
	length     int
	feedback   float64
	mix        float64
	in         []float64
	out        []float64
}

func newDelay(sampleRate, bufferSize int, time float64) *delay {
	if time <= 0 {
		time = defaultDelayTime
	}
	length := int(time * float64(sampleRate))
	if length < 1 {
		length = 1
	}
	return &delay{
		sampleRate: float64(sampleRate),
		buf:        make([]float64, length),
		length:     length,
		mix:        0.5,
		out:        make([]float64, bufferSize),
	}
}

func (d *delay) process(frames int) {
	for i := 0; i < frames; i++ {
		delayed := d.buf[d.pos]
		d.out[i] = d.in[i]*(1-d.mix) + delayed*d.mix
		d.buf[d.pos] = d.in[i] + delayed*d.feedback
		d.pos++
		if d.pos >= d.length {
			d.pos = 0
		}
	}
}

func (d *delay) set(name string, value float64) error {
	switch name {
	case "time":
		// delay capacity is fixed at compile time
		length := int(value * d.sampleRate)
		if length < 1 {
			length = 1
		}
		if length > len(d.buf) {
			length = len(d.buf)
		}
		d.length = length
		if d.pos >= d.length {
			d.pos = 0
		}
	case "feedback":
		d.feedback = clamp(value, 0, 0.99)
	case "mix":
		d.mix = clamp(value, 0, 1)
	default:
		return &paramError{name: name}
	}
	return nil
}

func (d *delay) output() []float64 {
	return d.out
}

func (d *delay) connect(in []float64) {
	d.in = in
}

func (d *delay) modulate(string, []float64) {}

// gain scales its input, typically modulated by an envelope.
type gain struct {
	gain    float64
	gainMod []float64
	in      []float64
	out     []float64
}

func newGain(bufferSize int) *gain {
	return &gain{
		gain: 1,
		out:  make([]float64, bufferSize),
	}
}

func (g *gain) process(frames int) {
	for i := 0; i < frames; i++ {
		value := g.gain
		if g.gainMod != nil {
			value *= g.gainMod[i]
		}
		g.out[i] = g.in[i] * value
	}
}

func (g *gain) set(name string, value float64) error {
	if name != "gain" {
		return &paramError{name: name}
	}
	g.gain = value
	return nil
}

func (g *gain) output() []float64 {
	return g.out
}

func (g *gain) connect(in []float64) {
	g.in = in
}

func (g *gain) modulate(name string, src []float64) {
	if name == "gain" {
		g.gainMod = src
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

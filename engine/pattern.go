package engine

import (
	"errors"
	"time"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/graph"
	"github.com/pipelined/cadence/pattern"
)

var (
	// ErrPatternNotes is returned when a pattern spec has no notes.
	ErrPatternNotes = errors.New("pattern notes not defined")
	// ErrPatternStep is returned when a pattern spec has no step duration.
	ErrPatternStep = errors.New("pattern step not defined")
)

// PatternSpec binds a value pattern to a voice template. Every pulled
// value is a note number converted to frequency for the template;
// negative values are rests. One value is pulled per step, infinite
// patterns play until stopped.
type PatternSpec struct {
	Notes pattern.Pattern
	Step  time.Duration
	// Gate is the fraction of the step after which the voice is
	// released, (0..1]. Zero value defaults to 0.9.
	Gate float64
	// Voice returns the graph spec to instantiate per note. Nil uses
	// DefaultVoice. Sample rate of the returned spec is set by the
	// engine.
	Voice func(freq float64) graph.Spec
}

// DefaultVoice is a sine voice with a short attack-release envelope.
func DefaultVoice(freq float64) graph.Spec {
	return graph.Voice(0, graph.Sine, freq, 0.2, 0.005, 0.05)
}

// PlayPattern validates the pattern spec and schedules its first step
// immediately. Further steps self-sustain through the scheduler.
func (e *Engine) PlayPattern(spec PatternSpec) (Handle, error) {
	h := Handle(cadence.NewUID().ID())
	return h, e.PlayPatternAs(h, spec)
}

// PlayPatternAs is PlayPattern with a caller-provided handle.
func (e *Engine) PlayPatternAs(h Handle, spec PatternSpec) error {
	if spec.Notes == nil {
		return ErrPatternNotes
	}
	if spec.Step <= 0 {
		return ErrPatternStep
	}
	if spec.Gate <= 0 || spec.Gate > 1 {
		spec.Gate = 0.9
	}
	if spec.Voice == nil {
		spec.Voice = DefaultVoice
	}
	// probe-compile the template so that config faults surface here,
	// not when a step fires
	probe := spec.Voice(440)
	probe.SampleRate = e.sampleRate
	if _, err := graph.New(probe, e.bufferSize); err != nil {
		return err
	}
	if err := e.register(h, probe); err != nil {
		return err
	}
	err := e.push(func() {
		p := &performance{handle: h, pattern: true}
		e.voices[h] = p
		// first step goes through the scheduler so that its release and
		// next-step events land on future ticks like every other step
		now := e.clock.now()
		p.track(e.sched.Schedule(now, func() {
			e.step(p, spec, spec.Notes.Start(), now)
		}))
	})
	if err != nil {
		e.unregister(h)
		return err
	}
	return nil
}

// step fires one pattern step at frame: it instantiates the voice,
// schedules its release and schedules the next step. Runs on the render
// goroutine, either from the activation command or from a scheduler
// callback.
func (e *Engine) step(p *performance, spec PatternSpec, s pattern.State, frame int64) {
	value, next, ok := spec.Notes.Next(s)
	if !ok {
		p.exhausted = true
		return
	}
	stepFrames := cadence.FramesOf(e.sampleRate, spec.Step)
	if value >= 0 {
		voiceSpec := spec.Voice(cadence.NoteToHz(value))
		voiceSpec.SampleRate = e.sampleRate
		g, err := graph.New(voiceSpec, e.bufferSize)
		if err != nil {
			// template was probed at play time, a per-note fault is a
			// template bug: skip the note, keep the pattern alive
			e.logger.Warn("pattern voice: ", err)
		} else {
			p.graphs = append(p.graphs, g)
			release := frame + int64(spec.Gate*float64(stepFrames))
			p.track(e.sched.Schedule(release, g.Release))
		}
	}
	p.track(e.sched.Schedule(frame+stepFrames, func() {
		e.step(p, spec, next, frame+stepFrames)
	}))
}

package main

import (
	"flag"
	"time"

	"github.com/pipelined/cadence/metric"
	"github.com/pipelined/cadence/pipe"
	"github.com/pipelined/cadence/portaudio"
)

// playCommand plays a note pattern on the default audio device.
type playCommand struct {
	notes    string
	step     time.Duration
	gate     float64
	shape    string
	rate     int
	duration time.Duration
	loop     bool
}

func (c *playCommand) Name() string {
	return "play"
}

func (c *playCommand) Help() string {
	return "play a note pattern on the default audio device"
}

func (c *playCommand) Register(f *flag.FlagSet) {
	f.StringVar(&c.notes, "notes", "60,62,64,65,67", "comma-separated midi note numbers, negative for rests")
	f.DurationVar(&c.step, "step", 250*time.Millisecond, "duration of one pattern step")
	f.Float64Var(&c.gate, "gate", 0.9, "fraction of the step the note is held")
	f.StringVar(&c.shape, "shape", "sine", "oscillator shape: sine, saw, square, triangle")
	f.IntVar(&c.rate, "rate", 44100, "sample rate")
	f.DurationVar(&c.duration, "dur", 0, "duration of playback, 0 plays until interrupted")
	f.BoolVar(&c.loop, "loop", true, "cycle the pattern")
}

func (c *playCommand) Run() error {
	e, err := newEngine(c.rate, c.duration)
	if err != nil {
		return err
	}
	if err := playPattern(e, c.notes, c.step, c.gate, c.shape, c.loop); err != nil {
		return err
	}

	p, err := pipe.New(
		e.BufferSize(),
		pipe.WithName("play"),
		pipe.WithPump(e),
		pipe.WithSinks(portaudio.NewSink()),
		pipe.WithMetric(metric.ExpVar{}),
	)
	if err != nil {
		return err
	}
	defer p.Close()
	return pipe.Wait(p.Run())
}

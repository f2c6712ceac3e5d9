package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pipelined/cadence/engine"
	"github.com/pipelined/cadence/graph"
	"github.com/pipelined/cadence/metric"
	"github.com/pipelined/cadence/mp3"
	"github.com/pipelined/cadence/pattern"
	"github.com/pipelined/cadence/pipe"
	"github.com/pipelined/cadence/wav"
)

// renderCommand renders a note pattern into a wav or mp3 file.
type renderCommand struct {
	notes    string
	step     time.Duration
	gate     float64
	shape    string
	rate     int
	duration time.Duration
	loop     bool
	bitRate  int
	out      string
}

func (c *renderCommand) Name() string {
	return "render"
}

func (c *renderCommand) Help() string {
	return "render a note pattern to a wav or mp3 file"
}

func (c *renderCommand) Register(f *flag.FlagSet) {
	f.StringVar(&c.notes, "notes", "60,62,64,65,67", "comma-separated midi note numbers, negative for rests")
	f.DurationVar(&c.step, "step", 250*time.Millisecond, "duration of one pattern step")
	f.Float64Var(&c.gate, "gate", 0.9, "fraction of the step the note is held")
	f.StringVar(&c.shape, "shape", "sine", "oscillator shape: sine, saw, square, triangle")
	f.IntVar(&c.rate, "rate", 44100, "sample rate")
	f.DurationVar(&c.duration, "dur", 10*time.Second, "duration of the render")
	f.BoolVar(&c.loop, "loop", true, "cycle the pattern")
	f.IntVar(&c.bitRate, "bitrate", 192, "mp3 bit rate")
	f.StringVar(&c.out, "out", "out.wav", "output file, wav or mp3")
}

func (c *renderCommand) Run() error {
	e, err := newEngine(c.rate, c.duration)
	if err != nil {
		return err
	}
	if err := playPattern(e, c.notes, c.step, c.gate, c.shape, c.loop); err != nil {
		return err
	}
	sink, err := newFileSink(c.out, c.bitRate)
	if err != nil {
		return err
	}

	p, err := pipe.New(
		e.BufferSize(),
		pipe.WithName("render"),
		pipe.WithPump(e),
		pipe.WithSinks(sink),
		pipe.WithMetric(metric.ExpVar{}),
	)
	if err != nil {
		return err
	}
	defer p.Close()
	return pipe.Wait(p.Run())
}

func newEngine(rate int, limit time.Duration) (*engine.Engine, error) {
	options := []engine.Option{
		engine.WithSampleRate(rate),
	}
	if limit > 0 {
		options = append(options, engine.WithLimit(limit))
	}
	return engine.New(options...)
}

// playPattern parses the notes and schedules them on the engine.
func playPattern(e *engine.Engine, notes string, step time.Duration, gate float64, shape string, loop bool) error {
	values, err := parseNotes(notes)
	if err != nil {
		return err
	}
	nodeType, err := parseShape(shape)
	if err != nil {
		return err
	}
	p := pattern.Seq(values...)
	if loop {
		p = pattern.Cycle(p)
	}
	_, err = e.PlayPattern(engine.PatternSpec{
		Notes: p,
		Step:  step,
		Gate:  gate,
		Voice: func(freq float64) graph.Spec {
			return graph.Voice(0, nodeType, freq, 0.2, 0.005, 0.05)
		},
	})
	return err
}

func parseNotes(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q: %v", part, err)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no notes provided")
	}
	return values, nil
}

func parseShape(s string) (graph.NodeType, error) {
	switch s {
	case "sine":
		return graph.Sine, nil
	case "saw":
		return graph.Saw, nil
	case "square":
		return graph.Square, nil
	case "triangle":
		return graph.Triangle, nil
	}
	return 0, fmt.Errorf("unknown shape %q", s)
}

func newFileSink(path string, bitRate int) (pipe.Sink, error) {
	switch filepath.Ext(path) {
	case ".wav":
		return wav.NewSink(path, 16), nil
	case ".mp3":
		return mp3.NewSink(path, bitRate, 2), nil
	}
	return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
}

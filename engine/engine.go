// Package engine provides the control and dispatch layer of cadence.
//
// An Engine binds unit graphs and patterns to a frame-accurate scheduler
// and renders all live voices into a single stream of blocks. The
// rendering happens on a single goroutine which pulls blocks through the
// pump closure; control calls originate from other goroutines and cross
// into the render loop through a bounded command queue which never
// blocks either side.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/graph"
	"github.com/pipelined/cadence/log"
	"github.com/pipelined/cadence/sched"
)

var (
	// ErrScheduleConflict is returned when a handle is already in use.
	ErrScheduleConflict = errors.New("handle already scheduled")
	// ErrCommandOverflow is returned when the command queue is full. The
	// command is rejected, the caller may retry.
	ErrCommandOverflow = errors.New("command queue overflow")
	// ErrUnknownHandle is returned for operations on a handle which was
	// never played or was already stopped.
	ErrUnknownHandle = errors.New("unknown handle")
)

// Handle identifies a played graph or pattern.
type Handle string

const defaultQueueSize = 1024

type (
	// Engine is an explicit context for all play and stop operations.
	// One engine owns one timeline, one scheduler and one output stream.
	Engine struct {
		cadence.UID
		sampleRate  int
		bufferSize  int
		numChannels int
		logger      *logrus.Logger

		commands chan func()
		sched    *sched.Scheduler
		voices   map[Handle]*performance
		clock    clock
		limit    time.Duration // render limit, 0 means unbounded

		// issued handles, control-side only
		m       sync.Mutex
		handles map[Handle]handleState
	}

	// handleState is the control-side view of a played handle, used for
	// synchronous validation.
	handleState struct {
		spec graph.Spec
	}

	// Option provides a way to set functional parameters to the engine.
	Option func(*Engine) error
)

// New creates a new engine with default rate 44100, block size 512 and
// a single output channel.
func New(options ...Option) (*Engine, error) {
	e := &Engine{
		UID:         cadence.NewUID(),
		sampleRate:  cadence.DefaultSampleRate,
		bufferSize:  512,
		numChannels: 1,
		logger:      log.GetLogger(),
		sched:       sched.New(),
		voices:      make(map[Handle]*performance),
		handles:     make(map[Handle]handleState),
	}
	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}
	e.commands = make(chan func(), defaultQueueSize)
	return e, nil
}

// WithSampleRate sets the sample rate of the engine output.
func WithSampleRate(sampleRate int) Option {
	return func(e *Engine) error {
		if sampleRate <= 0 {
			return graph.ErrSampleRate
		}
		e.sampleRate = sampleRate
		return nil
	}
}

// WithBufferSize sets the render block size.
func WithBufferSize(bufferSize int) Option {
	return func(e *Engine) error {
		if bufferSize <= 0 {
			return graph.ErrBufferSize
		}
		e.bufferSize = bufferSize
		return nil
	}
}

// WithNumChannels sets number of output channels. The mix is mono,
// replicated to all channels.
func WithNumChannels(numChannels int) Option {
	return func(e *Engine) error {
		e.numChannels = numChannels
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithLimit bounds the render to provided duration: the pump returns
// io.EOF once the limit is reached. Used for offline rendering.
func WithLimit(d time.Duration) Option {
	return func(e *Engine) error {
		e.limit = d
		return nil
	}
}

// SampleRate returns the engine sample rate.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// BufferSize returns the engine block size.
func (e *Engine) BufferSize() int {
	return e.bufferSize
}

// Now returns the logical time of the engine: frames rendered so far
// converted to duration. Single writer is the render loop, any
// goroutine may read.
func (e *Engine) Now() time.Duration {
	return cadence.DurationOf(e.sampleRate, e.clock.now())
}

// Play compiles the graph spec and schedules an immediate render start.
// Configuration faults are returned synchronously, the activation
// crosses to the render loop asynchronously.
func (e *Engine) Play(spec graph.Spec) (Handle, error) {
	h := Handle(cadence.NewUID().ID())
	return h, e.PlayAs(h, spec)
}

// PlayAs is Play with a caller-provided handle.
func (e *Engine) PlayAs(h Handle, spec graph.Spec) error {
	spec.SampleRate = e.sampleRate
	g, err := graph.New(spec, e.bufferSize)
	if err != nil {
		return err
	}
	if err := e.register(h, spec); err != nil {
		return err
	}
	if err := e.push(func() {
		e.voices[h] = &performance{
			handle: h,
			graphs: []*graph.Graph{g},
		}
	}); err != nil {
		e.unregister(h)
		return err
	}
	return nil
}

// Stop cancels all pending events of the handle and frees its graphs.
func (e *Engine) Stop(h Handle) error {
	if !e.issued(h) {
		return ErrUnknownHandle
	}
	err := e.push(func() {
		if p, ok := e.voices[h]; ok {
			p.cancel()
			delete(e.voices, h)
		}
	})
	if err != nil {
		return err
	}
	e.unregister(h)
	return nil
}

// SetParam sets a parameter on all live graphs of the handle, effective
// at the next block boundary. Unknown node or parameter is reported
// synchronously.
func (e *Engine) SetParam(h Handle, node, name string, value float64) error {
	return e.SetParamAt(h, 0, node, name, value)
}

// SetParamAt schedules the parameter change at provided time on the
// engine timeline. Zero or past time applies at the next block.
func (e *Engine) SetParamAt(h Handle, at time.Duration, node, name string, value float64) error {
	spec, ok := e.issuedSpec(h)
	if !ok {
		return ErrUnknownHandle
	}
	if !spec.HasParam(node, name) {
		return &graph.ConfigError{Node: node, Err: graph.ErrUnknownParam}
	}
	frame := cadence.FramesOf(e.sampleRate, at)
	return e.push(func() {
		p, ok := e.voices[h]
		if !ok {
			return
		}
		apply := func() {
			if p.stopped {
				return
			}
			for _, g := range p.graphs {
				if err := g.SetParam(node, name, value); err != nil {
					e.logger.Warn("set param: ", err)
				}
			}
		}
		if frame <= e.clock.now() {
			apply()
			return
		}
		p.track(e.sched.Schedule(frame, apply))
	})
}

// push sends a command to the render loop without blocking. Full queue
// rejects the command.
func (e *Engine) push(cmd func()) error {
	select {
	case e.commands <- cmd:
		return nil
	default:
		return ErrCommandOverflow
	}
}

func (e *Engine) register(h Handle, spec graph.Spec) error {
	e.m.Lock()
	defer e.m.Unlock()
	if _, ok := e.handles[h]; ok {
		return ErrScheduleConflict
	}
	e.handles[h] = handleState{spec: spec}
	return nil
}

func (e *Engine) unregister(h Handle) {
	e.m.Lock()
	delete(e.handles, h)
	e.m.Unlock()
}

func (e *Engine) issued(h Handle) bool {
	e.m.Lock()
	_, ok := e.handles[h]
	e.m.Unlock()
	return ok
}

func (e *Engine) issuedSpec(h Handle) (graph.Spec, bool) {
	e.m.Lock()
	state, ok := e.handles[h]
	e.m.Unlock()
	return state.spec, ok
}

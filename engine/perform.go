package engine

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/graph"
	"github.com/pipelined/cadence/sched"
)

// clock is the engine timeline: frames rendered so far. Written by the
// render loop only, read from any goroutine.
type clock struct {
	frames int64
}

func (c *clock) now() int64 {
	return atomic.LoadInt64(&c.frames)
}

func (c *clock) advance(frames int) {
	atomic.AddInt64(&c.frames, int64(frames))
}

// performance holds render-side state of one handle: its live graphs
// and pending scheduled events.
type performance struct {
	handle    Handle
	pattern   bool
	exhausted bool
	stopped   bool
	graphs    []*graph.Graph
	events    []*sched.Event
}

func (p *performance) track(e *sched.Event) {
	// prune fired events so the slice stays proportional to pending ones
	if len(p.events) > 8 {
		kept := p.events[:0]
		for _, ev := range p.events {
			if !ev.Done() {
				kept = append(kept, ev)
			}
		}
		p.events = kept
	}
	p.events = append(p.events, e)
}

// cancel withdraws all pending events and drops all graphs.
func (p *performance) cancel() {
	p.stopped = true
	for _, ev := range p.events {
		ev.Cancel()
	}
	p.events = nil
	p.graphs = nil
}

// reap drops graphs which finished their release.
func (p *performance) reap() {
	kept := p.graphs[:0]
	for _, g := range p.graphs {
		if !g.Done() {
			kept = append(kept, g)
		}
	}
	p.graphs = kept
}

// done reports whether the performance can be removed from the engine.
func (p *performance) done() bool {
	if p.stopped {
		return true
	}
	if p.pattern && !p.exhausted {
		return false
	}
	if len(p.graphs) > 0 {
		return false
	}
	for _, ev := range p.events {
		if !ev.Done() {
			return false
		}
	}
	return true
}

// Pump returns the render closure of the engine along with its sample
// rate and number of channels. The closure must be called from a single
// goroutine: it is the real-time side of the engine.
//
// Error conventions follow pipe components: io.EOF when the configured
// limit was already reached, io.ErrUnexpectedEOF with the last partial
// buffer.
func (e *Engine) Pump(sourceID string, bufferSize int) (func() (cadence.Buffer, error), int, int, error) {
	if bufferSize <= 0 {
		return nil, 0, 0, graph.ErrBufferSize
	}
	scratch := make([]float64, bufferSize)
	mix := make([]float64, bufferSize)
	limit := cadence.FramesOf(e.sampleRate, e.limit)
	return func() (cadence.Buffer, error) {
		frames := bufferSize
		if limit > 0 {
			left := limit - e.clock.now()
			if left <= 0 {
				return nil, io.EOF
			}
			if left < int64(frames) {
				frames = int(left)
			}
		}
		e.renderBlock(mix[:frames], scratch)

		out := cadence.EmptyBuffer(e.numChannels, frames)
		for i := range out {
			copy(out[i], mix[:frames])
		}
		if frames < bufferSize {
			return out, io.ErrUnexpectedEOF
		}
		return out, nil
	}, e.sampleRate, e.numChannels, nil
}

// renderBlock is the per-block path: drain commands, tick the scheduler
// over the block, render and mix all live graphs, reap finished voices,
// advance the clock.
func (e *Engine) renderBlock(mix, scratch []float64) {
	e.drain()
	now := e.clock.now()
	e.sched.Tick(now + int64(len(mix)) - 1)

	for i := range mix {
		mix[i] = 0
	}
	for _, p := range e.voices {
		for _, g := range p.graphs {
			block := scratch[:len(mix)]
			g.Render(block)
			if !finite(block) {
				// a faulty voice contributes silence for this block,
				// the render thread never fails
				e.logger.Warn("render fault: non-finite output, handle ", p.handle)
				continue
			}
			for i := range block {
				mix[i] += block[i]
			}
		}
		p.reap()
	}
	for h, p := range e.voices {
		if p.done() {
			delete(e.voices, h)
		}
	}
	e.clock.advance(len(mix))
}

// drain executes all queued commands without blocking.
func (e *Engine) drain() {
	for {
		select {
		case cmd := <-e.commands:
			cmd()
		default:
			return
		}
	}
}

func finite(block []float64) bool {
	for _, v := range block {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Live returns number of live graphs. Diagnostic accessor: must not
// race with a running pump, call it between pump calls.
func (e *Engine) Live() int {
	e.drain()
	n := 0
	for _, p := range e.voices {
		n += len(p.graphs)
	}
	return n
}

// LiveNodes returns total node count across live graphs. Same
// constraints as Live.
func (e *Engine) LiveNodes() int {
	e.drain()
	n := 0
	for _, p := range e.voices {
		for _, g := range p.graphs {
			n += g.NumNodes()
		}
	}
	return n
}

// PendingEvents returns number of events still scheduled. Same
// constraints as Live.
func (e *Engine) PendingEvents() int {
	e.drain()
	n := 0
	for _, p := range e.voices {
		for _, ev := range p.events {
			if !ev.Done() {
				n++
			}
		}
	}
	return n
}

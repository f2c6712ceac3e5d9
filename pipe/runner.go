package pipe

import (
	"io"

	"github.com/pipelined/cadence"
)

// pumpRunner is pump's runner.
type pumpRunner struct {
	fn          func() (cadence.Buffer, error)
	sampleRate  int
	numChannels int
	measure     MeasureFunc
	hooks
}

// processRunner represents processor's runner.
type processRunner struct {
	fn      func(cadence.Buffer) (cadence.Buffer, error)
	measure MeasureFunc
	hooks
}

// sinkRunner represents sink's runner.
type sinkRunner struct {
	fn      func(cadence.Buffer) error
	measure MeasureFunc
	hooks
}

// Flusher defines component that must be flushed in the end of
// execution.
type Flusher interface {
	Flush(string) error
}

// Interrupter defines component that has custom interruption logic.
type Interrupter interface {
	Interrupt(string) error
}

// Resetter defines component that must be reset before consequent use.
type Resetter interface {
	Reset(string) error
}

// hook represents optional functions for components lifecycle.
type hook func(string) error

// set of hooks for runners.
type hooks struct {
	flush     hook
	interrupt hook
	reset     hook
}

// bindHooks of component.
func bindHooks(v interface{}) hooks {
	h := hooks{}
	if f, ok := v.(Flusher); ok {
		h.flush = f.Flush
	}
	if i, ok := v.(Interrupter); ok {
		h.interrupt = i.Interrupt
	}
	if r, ok := v.(Resetter); ok {
		h.reset = r.Reset
	}
	return h
}

var do struct{}

// newPumpRunner creates the closure. It's separated from run to have
// pre-run logic executed in correct order for all components.
func newPumpRunner(sourceID string, bufferSize int, p Pump) (*pumpRunner, error) {
	fn, sampleRate, numChannels, err := p.Pump(sourceID, bufferSize)
	if err != nil {
		return nil, err
	}
	return &pumpRunner{
		fn:          fn,
		sampleRate:  sampleRate,
		numChannels: numChannels,
		hooks:       bindHooks(p),
	}, nil
}

// run the pump runner.
func (r *pumpRunner) run(cancel chan struct{}, sourceID string, provide chan struct{}, consume chan message) (<-chan message, <-chan error) {
	out := make(chan message)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		call(r.reset, sourceID, errc)
		for {
			// request new message
			select {
			case provide <- do:
			case <-cancel:
				call(r.interrupt, sourceID, errc)
				return
			}

			// receive new message
			var m message
			select {
			case m = <-consume:
			case <-cancel:
				call(r.interrupt, sourceID, errc)
				return
			}

			var err error
			m.buffer, err = r.fn()
			switch err {
			case nil:
			case io.EOF:
				m.drop()
				call(r.flush, sourceID, errc)
				return
			case io.ErrUnexpectedEOF:
				// the last shorter buffer still goes through
				defer call(r.flush, sourceID, errc)
			default:
				m.drop()
				errc <- err
				return
			}
			if r.measure != nil {
				r.measure(m.buffer.Size())
			}

			// push message further
			select {
			case out <- m:
			case <-cancel:
				m.drop()
				call(r.interrupt, sourceID, errc)
				return
			}
			if err == io.ErrUnexpectedEOF {
				return
			}
		}
	}()
	return out, errc
}

// newProcessRunner creates the closure. It's separated from run to have
// pre-run logic executed in correct order for all components.
func newProcessRunner(sourceID string, sampleRate, numChannels int, p Processor) (*processRunner, error) {
	fn, err := p.Process(sourceID, sampleRate, numChannels)
	if err != nil {
		return nil, err
	}
	return &processRunner{
		fn:    fn,
		hooks: bindHooks(p),
	}, nil
}

// run the processor runner.
func (r *processRunner) run(cancel chan struct{}, sourceID string, in <-chan message) (<-chan message, <-chan error) {
	out := make(chan message)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		call(r.reset, sourceID, errc)
		for {
			// retrieve new message
			var m message
			var ok bool
			select {
			case m, ok = <-in:
				if !ok {
					call(r.flush, sourceID, errc)
					return
				}
			case <-cancel:
				call(r.interrupt, sourceID, errc)
				return
			}

			var err error
			m.buffer, err = r.fn(m.buffer)
			if err != nil {
				errc <- err
				return
			}
			if r.measure != nil {
				r.measure(m.buffer.Size())
			}

			// send message further
			select {
			case out <- m:
			case <-cancel:
				call(r.interrupt, sourceID, errc)
				return
			}
		}
	}()
	return out, errc
}

// newSinkRunner creates the closure. It's separated from run to have
// pre-run logic executed in correct order for all components.
func newSinkRunner(sourceID string, sampleRate, numChannels, bufferSize int, s Sink) (*sinkRunner, error) {
	fn, err := s.Sink(sourceID, sampleRate, numChannels, bufferSize)
	if err != nil {
		return nil, err
	}
	return &sinkRunner{
		fn:    fn,
		hooks: bindHooks(s),
	}, nil
}

// run the sink runner.
func (r *sinkRunner) run(cancel chan struct{}, sourceID string, in <-chan message) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		call(r.reset, sourceID, errc)
		for {
			// receive new message
			var m message
			var ok bool
			select {
			case m, ok = <-in:
				if !ok {
					call(r.flush, sourceID, errc)
					return
				}
			case <-cancel:
				call(r.interrupt, sourceID, errc)
				return
			}

			err := r.fn(m.buffer)
			if err != nil {
				errc <- err
				return
			}
			if r.measure != nil {
				r.measure(m.buffer.Size())
			}
			if m.received != nil {
				m.received.Done()
			}
		}
	}()
	return errc
}

// call optional hook with sourceID argument. If error happens, it will
// be sent to errc.
func call(fn hook, sourceID string, errc chan error) {
	if fn == nil {
		return
	}
	if err := fn(sourceID); err != nil {
		errc <- err
	}
}

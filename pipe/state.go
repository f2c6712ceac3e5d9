package pipe

import (
	"fmt"
	"sync"
)

// State identifies one of the possible states pipe can be in.
type State interface {
	listen(*Pipe, target) (State, target)
	transition(*Pipe, eventMessage) State
}

// idleState identifies that the pipe is ONLY waiting for user to send
// an event.
type idleState interface {
	State
}

// activeState identifies that the pipe is processing signal and also is
// waiting for user to send an event.
type activeState interface {
	State
	sendMessage(*Pipe) State
	handleError(*Pipe, error) State
}

// states
type (
	ready   struct{}
	running struct{}
	pausing struct{}
	paused  struct{}
)

// states variables
var (
	// Ready [idle] state means that pipe can be started.
	Ready ready

	// Running [active] state means that pipe is executing at the moment.
	Running running

	// Pausing [active] state means that pause event was sent, but still
	// not reached all sinks.
	Pausing pausing

	// Paused [idle] state means that pipe is paused and can be resumed.
	Paused paused
)

// event identifies the type of event.
type event int

// types of events.
const (
	run event = iota
	pause
	resume
)

// eventMessage is passed into pipe's event channel when user does some
// action.
type eventMessage struct {
	event
	target
}

// target identifies which state is expected from pipe.
type target struct {
	State            // end state for this event
	errc  chan error // closed when target state is reached
}

// Run sends a run event into pipe. Returned channel is closed when the
// pipe finishes the run and is ready again, or receives the first error.
func (p *Pipe) Run() chan error {
	e := eventMessage{
		event: run,
		target: target{
			State: Ready,
			errc:  make(chan error, 1),
		},
	}
	p.events <- e
	return e.target.errc
}

// Pause sends a pause event into pipe.
func (p *Pipe) Pause() chan error {
	e := eventMessage{
		event: pause,
		target: target{
			State: Paused,
			errc:  make(chan error, 1),
		},
	}
	p.events <- e
	return e.target.errc
}

// Resume sends a resume event into pipe.
func (p *Pipe) Resume() chan error {
	e := eventMessage{
		event: resume,
		target: target{
			State: Running,
			errc:  make(chan error, 1),
		},
	}
	p.events <- e
	return e.target.errc
}

// Close disposes the pipe. Any ongoing run is interrupted. Pipe methods
// must not be called after Close.
func (p *Pipe) Close() {
	close(p.events)
}

// Wait for state transition or first error to occur.
func Wait(d chan error) error {
	for err := range d {
		if err != nil {
			return err
		}
	}
	return nil
}

// loop executes the pipe state machine until the pipe is closed.
func (p *Pipe) loop() {
	var s State = Ready
	t := target{}
	for s != nil {
		s, t = s.listen(p, t)
	}
	t.reach()
}

// idle is used to listen to pipe's channels which are relevant for idle
// state. s is the current state, t is the target of the last event.
func (p *Pipe) idle(s idleState, t target) (State, target) {
	if s == t.State {
		t = t.reach()
	}
	for {
		e, ok := <-p.events
		if !ok {
			p.interrupt()
			return nil, t
		}
		newState := s.transition(p, e)
		if e.hasTarget() {
			t = t.reach()
			t = e.target
		}
		if s != newState {
			return newState, t
		}
	}
}

// active is used to listen to pipe's channels which are relevant for
// active state.
func (p *Pipe) active(s activeState, t target) (State, target) {
	if s == t.State {
		t = t.reach()
	}
	for {
		var newState State
		select {
		case e, ok := <-p.events:
			if !ok {
				p.interrupt()
				return nil, t
			}
			newState = s.transition(p, e)
			if e.hasTarget() {
				t = t.reach()
				t = e.target
			}
		case <-p.provide:
			newState = s.sendMessage(p)
			if p.errc == nil {
				// the run ended mid-send, nothing left to await
				t = t.reach()
			}
		case err := <-p.errc:
			newState = s.handleError(p, err)
			if err != nil {
				t = t.fail(err)
			} else {
				// the run is over, whatever was awaited is as reached
				// as it will ever be
				t = t.reach()
			}
			p.errc = nil
		}
		if s != newState {
			return newState, t
		}
	}
}

func (s ready) listen(p *Pipe, t target) (State, target) {
	return p.idle(s, t)
}

func (s ready) transition(p *Pipe, e eventMessage) State {
	switch e.event {
	case run:
		if err := p.bind(); err != nil {
			p.log.Debug(fmt.Sprintf("%v failed to bind components: %v", p, err))
			e.target.errc <- err
			return s
		}
		p.start()
		return Running
	}
	e.target.errc <- ErrInvalidState
	return s
}

func (s running) listen(p *Pipe, t target) (State, target) {
	return p.active(s, t)
}

func (s running) transition(p *Pipe, e eventMessage) State {
	switch e.event {
	case pause:
		return Pausing
	}
	e.target.errc <- ErrInvalidState
	return s
}

func (s running) sendMessage(p *Pipe) State {
	p.consume <- message{sourceID: p.ID()}
	return s
}

func (s running) handleError(p *Pipe, err error) State {
	if err != nil {
		p.interrupt()
	}
	return Ready
}

func (s pausing) listen(p *Pipe, t target) (State, target) {
	return p.active(s, t)
}

func (s pausing) transition(p *Pipe, e eventMessage) State {
	e.target.errc <- ErrInvalidState
	return s
}

// sendMessage sends the last message before pause: all sinks confirm
// its delivery before the pipe is considered paused.
func (s pausing) sendMessage(p *Pipe) State {
	var wg sync.WaitGroup
	wg.Add(1)
	p.consume <- message{sourceID: p.ID(), received: &wg}
	delivered := make(chan struct{})
	go func() {
		wg.Wait()
		close(delivered)
	}()
	select {
	case <-delivered:
		return Paused
	case err := <-p.errc:
		// the run ended before the pause message reached all sinks
		newState := s.handleError(p, err)
		p.errc = nil
		return newState
	}
}

func (s pausing) handleError(p *Pipe, err error) State {
	// the run ended before the pause message got through
	if err != nil {
		p.interrupt()
	}
	return Ready
}

func (s paused) listen(p *Pipe, t target) (State, target) {
	return p.idle(s, t)
}

func (s paused) transition(p *Pipe, e eventMessage) State {
	switch e.event {
	case resume:
		return Running
	}
	e.target.errc <- ErrInvalidState
	return s
}

// hasTarget checks if event contains target.
func (e eventMessage) hasTarget() bool {
	return e.target.State != nil
}

// reach closes error channel and cancels waiting of target.
func (t target) reach() target {
	if t.State != nil {
		t.State = nil
		close(t.errc)
		t.errc = nil
	}
	return t
}

// fail sends the error to the target and closes it.
func (t target) fail(err error) target {
	if t.State != nil {
		t.State = nil
		t.errc <- err
		close(t.errc)
		t.errc = nil
	}
	return t
}

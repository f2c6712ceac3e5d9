// Package pipe binds a sound source to processors and sinks and executes
// the binding. Every component runs on its own goroutine, buffers travel
// through channels and errors of all components are merged into a single
// channel per run.
package pipe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/log"
)

type (
	// Pump is a source of buffers. The returned closure pulls a new
	// buffer on every call, io.EOF when the source is done and
	// io.ErrUnexpectedEOF along with the last shorter buffer.
	Pump interface {
		ID() string
		Pump(sourceID string, bufferSize int) (func() (cadence.Buffer, error), int, int, error)
	}

	// Processor transforms buffers.
	Processor interface {
		ID() string
		Process(sourceID string, sampleRate, numChannels int) (func(cadence.Buffer) (cadence.Buffer, error), error)
	}

	// Sink consumes buffers.
	Sink interface {
		ID() string
		Sink(sourceID string, sampleRate, numChannels, bufferSize int) (func(cadence.Buffer) error, error)
	}

	// Metric measures throughput of pipe components.
	Metric interface {
		Meter(id string, sampleRate int) MeasureFunc
	}

	// MeasureFunc captures counters when a buffer passes a component.
	MeasureFunc func(size int)
)

// message is a main structure for pipe transport.
type message struct {
	buffer   cadence.Buffer
	sourceID string
	// received is set on the last message before pause, sinks confirm
	// its delivery
	received *sync.WaitGroup
}

// drop resolves the delivery confirmation when the message never
// reaches the sinks.
func (m message) drop() {
	if m.received != nil {
		m.received.Done()
	}
}

// Pipe is a pipeline with fully defined sound processing sequence. It
// has one pump, zero or more processors and one or more sinks.
type Pipe struct {
	cadence.UID
	name       string
	bufferSize int

	pump       Pump
	processors []Processor
	sinks      []Sink

	sampleRate  int
	numChannels int

	pumpRunner  *pumpRunner
	procRunners []*processRunner
	sinkRunners []*sinkRunner

	metric Metric
	log    log.Logger

	events  chan eventMessage
	cancel  chan struct{}
	errc    chan error    // merged errors of the current run
	provide chan struct{} // pump asks for a new message
	consume chan message  // new messages for the pump
}

// Option provides a way to set parameters to pipe.
type Option func(p *Pipe) error

var (
	// ErrInvalidState is returned if pipe method cannot be executed at
	// this moment.
	ErrInvalidState = errors.New("invalid state")
	// ErrComponentNoID is used to cause a panic when a component without
	// ID is added to pipe.
	ErrComponentNoID = errors.New("component has no ID value")
)

// New creates a new pipe and applies provided options. Returned pipe is
// in Ready state. Close must be called to dispose it.
func New(bufferSize int, options ...Option) (*Pipe, error) {
	p := &Pipe{
		UID:        cadence.NewUID(),
		bufferSize: bufferSize,
		log:        log.GetLogger(),
		events:     make(chan eventMessage, 1),
		provide:    make(chan struct{}),
		consume:    make(chan message),
	}
	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}
	go p.loop()
	return p, nil
}

// WithName sets name to Pipe.
func WithName(n string) Option {
	return func(p *Pipe) error {
		p.name = n
		return nil
	}
}

// WithLogger sets logger to Pipe.
func WithLogger(l log.Logger) Option {
	return func(p *Pipe) error {
		p.log = l
		return nil
	}
}

// WithMetric adds metric for this pipe and all components.
func WithMetric(m Metric) Option {
	return func(p *Pipe) error {
		p.metric = m
		return nil
	}
}

// WithPump sets pump to Pipe.
func WithPump(pump Pump) Option {
	if pump.ID() == "" {
		panic(ErrComponentNoID)
	}
	return func(p *Pipe) error {
		p.pump = pump
		return nil
	}
}

// WithProcessors sets processors to Pipe.
func WithProcessors(processors ...Processor) Option {
	for i := range processors {
		if processors[i].ID() == "" {
			panic(ErrComponentNoID)
		}
	}
	return func(p *Pipe) error {
		p.processors = append(p.processors, processors...)
		return nil
	}
}

// WithSinks sets sinks to Pipe.
func WithSinks(sinks ...Sink) Option {
	for i := range sinks {
		if sinks[i].ID() == "" {
			panic(ErrComponentNoID)
		}
	}
	return func(p *Pipe) error {
		p.sinks = append(p.sinks, sinks...)
		return nil
	}
}

// bind allocates closures of all components. It is executed at the
// start of every run so that components are reset between runs.
func (p *Pipe) bind() error {
	pr, err := newPumpRunner(p.ID(), p.bufferSize, p.pump)
	if err != nil {
		return err
	}
	p.pumpRunner = pr
	p.sampleRate = pr.sampleRate
	p.numChannels = pr.numChannels

	p.procRunners = p.procRunners[:0]
	for _, proc := range p.processors {
		r, err := newProcessRunner(p.ID(), p.sampleRate, p.numChannels, proc)
		if err != nil {
			return err
		}
		p.procRunners = append(p.procRunners, r)
	}

	p.sinkRunners = p.sinkRunners[:0]
	for _, sink := range p.sinks {
		r, err := newSinkRunner(p.ID(), p.sampleRate, p.numChannels, p.bufferSize, sink)
		if err != nil {
			return err
		}
		p.sinkRunners = append(p.sinkRunners, r)
	}
	if p.metric != nil {
		p.pumpRunner.measure = p.metric.Meter(p.pump.ID(), p.sampleRate)
		for i, r := range p.procRunners {
			r.measure = p.metric.Meter(p.processors[i].ID(), p.sampleRate)
		}
		for i, r := range p.sinkRunners {
			r.measure = p.metric.Meter(p.sinks[i].ID(), p.sampleRate)
		}
	}
	return nil
}

// start starts the execution of pipe.
func (p *Pipe) start() {
	p.cancel = make(chan struct{})
	errcList := make([]<-chan error, 0, 1+len(p.procRunners)+len(p.sinkRunners))
	// start pump
	out, errc := p.pumpRunner.run(p.cancel, p.ID(), p.provide, p.consume)
	errcList = append(errcList, errc)

	// start chained processing
	for _, proc := range p.procRunners {
		out, errc = proc.run(p.cancel, p.ID(), out)
		errcList = append(errcList, errc)
	}

	errcList = append(errcList, p.broadcastToSinks(out)...)
	p.errc = mergeErrors(errcList...)
}

// broadcastToSinks passes messages to all sinks.
func (p *Pipe) broadcastToSinks(in <-chan message) []<-chan error {
	errcList := make([]<-chan error, 0, len(p.sinkRunners))
	broadcasts := make([]chan message, len(p.sinkRunners))
	for i := range broadcasts {
		broadcasts[i] = make(chan message)
	}

	for i, s := range p.sinkRunners {
		errc := s.run(p.cancel, p.ID(), broadcasts[i])
		errcList = append(errcList, errc)
	}

	go func() {
		defer func() {
			for i := range broadcasts {
				close(broadcasts[i])
			}
		}()
		for msg := range in {
			if msg.received != nil {
				// one delivery is already accounted for
				msg.received.Add(len(broadcasts) - 1)
			}
			for i := range broadcasts {
				select {
				case broadcasts[i] <- msg:
				case <-p.cancel:
					return
				}
			}
		}
	}()

	return errcList
}

// merge error channels from all components into one.
func mergeErrors(errcList ...<-chan error) chan error {
	var wg sync.WaitGroup
	errc := make(chan error, len(errcList))

	output := func(ec <-chan error) {
		for e := range ec {
			errc <- e
		}
		wg.Done()
	}
	wg.Add(len(errcList))
	for _, ec := range errcList {
		go output(ec)
	}

	go func() {
		wg.Wait()
		close(errc)
	}()

	return errc
}

// interrupt stops the current run if there is one.
func (p *Pipe) interrupt() {
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
}

// SampleRate returns the sample rate of the last run, 0 before the
// first run.
func (p *Pipe) SampleRate() int {
	return p.sampleRate
}

// String returns pipe name and id.
func (p *Pipe) String() string {
	if p.name == "" {
		return p.ID()
	}
	return fmt.Sprintf("%v %v", p.name, p.ID())
}

// Package mock provides doubles of pipe components to test pipe
// behavior and lifecycle hooks.
package mock

import (
	"io"

	"github.com/pipelined/cadence"
)

const (
	defaultSampleRate  = 44100
	defaultNumChannels = 1
)

// counter counts buffers and samples passed through a component.
type counter struct {
	Messages int
	Samples  int
}

func (c *counter) advance(b cadence.Buffer) {
	c.Messages++
	c.Samples += b.Size()
}

// hooks tracks lifecycle calls of a component.
type hooks struct {
	Resetted    bool
	Flushed     bool
	Interrupted bool
}

// Reset implements pipe.Resetter.
func (h *hooks) Reset(string) error {
	h.Resetted = true
	return nil
}

// Flush implements pipe.Flusher.
func (h *hooks) Flush(string) error {
	h.Flushed = true
	return nil
}

// Interrupt implements pipe.Interrupter.
func (h *hooks) Interrupt(string) error {
	h.Interrupted = true
	return nil
}

// Pump mocks a pipe.Pump. It pumps Limit buffers filled with Value,
// then io.EOF. Zero Limit pumps forever.
type Pump struct {
	cadence.UID
	counter
	hooks
	Limit       int
	Value       float64
	SampleRate  int
	NumChannels int
	ErrorOnCall error
}

// Pump implements pipe.Pump.
func (p *Pump) Pump(sourceID string, bufferSize int) (func() (cadence.Buffer, error), int, int, error) {
	sampleRate := p.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	numChannels := p.NumChannels
	if numChannels == 0 {
		numChannels = defaultNumChannels
	}
	return func() (cadence.Buffer, error) {
		if p.ErrorOnCall != nil {
			return nil, p.ErrorOnCall
		}
		if p.Limit > 0 && p.Messages == p.Limit {
			return nil, io.EOF
		}
		b := cadence.EmptyBuffer(numChannels, bufferSize)
		for i := range b {
			for j := range b[i] {
				b[i][j] = p.Value
			}
		}
		p.advance(b)
		return b, nil
	}, sampleRate, numChannels, nil
}

// Processor mocks a pipe.Processor. It scales every sample by Gain.
type Processor struct {
	cadence.UID
	counter
	hooks
	Gain float64
}

// Process implements pipe.Processor.
func (p *Processor) Process(sourceID string, sampleRate, numChannels int) (func(cadence.Buffer) (cadence.Buffer, error), error) {
	return func(b cadence.Buffer) (cadence.Buffer, error) {
		for i := range b {
			for j := range b[i] {
				b[i][j] *= p.Gain
			}
		}
		p.advance(b)
		return b, nil
	}, nil
}

// Sink mocks a pipe.Sink. It appends all received data to Buffer.
type Sink struct {
	cadence.UID
	counter
	hooks
	Buffer cadence.Buffer
}

// Sink implements pipe.Sink.
func (s *Sink) Sink(sourceID string, sampleRate, numChannels, bufferSize int) (func(cadence.Buffer) error, error) {
	return func(b cadence.Buffer) error {
		s.Buffer = s.Buffer.Append(b)
		s.advance(b)
		return nil
	}, nil
}

// Package portaudio plays audio on the default system device.
package portaudio

import (
	"github.com/gordonklaus/portaudio"

	"github.com/pipelined/cadence"
)

// Sink represents portaudio sink which allows to play audio using
// default device.
type Sink struct {
	cadence.UID
	buf    []float32
	stream *portaudio.Stream
}

// NewSink returns new initialized sink which allows to play a pipe.
func NewSink() *Sink {
	return &Sink{
		UID: cadence.NewUID(),
	}
}

// Sink initializes portaudio, opens the default stream and returns the
// writing closure.
func (s *Sink) Sink(sourceID string, sampleRate, numChannels, bufferSize int) (func(cadence.Buffer) error, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s.buf = make([]float32, bufferSize*numChannels)
	stream, err := portaudio.OpenDefaultStream(0, numChannels, float64(sampleRate), bufferSize, &s.buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		return nil, err
	}
	s.stream = stream
	return func(b cadence.Buffer) error {
		for i := range b[0] {
			for j := range b {
				s.buf[i*numChannels+j] = float32(b[j][i])
			}
		}
		// the last buffer of a run can be shorter than the stream
		for i := b.Size() * numChannels; i < len(s.buf); i++ {
			s.buf[i] = 0
		}
		return s.stream.Write()
	}, nil
}

// Flush terminates portaudio structures.
func (s *Sink) Flush(string) error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// Interrupt stops the stream when the run is canceled.
func (s *Sink) Interrupt(string) error {
	return s.Flush("")
}

package mp3

import (
	"bytes"
	"encoding/binary"
	"os"
	"sync"

	"github.com/viert/lame"

	"github.com/pipelined/cadence"
)

// Sink writes data to mp3 file.
type Sink struct {
	cadence.UID
	path    string
	bitRate int
	quality int
	f       *os.File
	wr      *lame.LameWriter
	once    sync.Once
	ints    []float64
}

// NewSink creates new mp3 sink.
func NewSink(path string, bitRate, quality int) *Sink {
	return &Sink{
		UID:     cadence.NewUID(),
		path:    path,
		bitRate: bitRate,
		quality: quality,
	}
}

// Reset is used to prevent additional runs of the sink: lame encoder
// state cannot be reused.
func (s *Sink) Reset(string) error {
	return cadence.SingleUse(&s.once)
}

// Sink creates the file, initializes the encoder and returns the
// writing closure.
func (s *Sink) Sink(sourceID string, sampleRate, numChannels, bufferSize int) (func(cadence.Buffer) error, error) {
	var err error
	s.f, err = os.Create(s.path)
	if err != nil {
		return nil, err
	}

	s.wr = lame.NewWriter(s.f)
	s.wr.Encoder.SetBitrate(s.bitRate)
	s.wr.Encoder.SetQuality(s.quality)
	s.wr.Encoder.SetNumChannels(numChannels)
	s.wr.Encoder.SetInSamplerate(sampleRate)
	s.wr.Encoder.SetMode(lame.JOINT_STEREO)
	s.wr.Encoder.SetVBR(lame.VBR_RH)
	s.wr.Encoder.InitParams()

	return func(b cadence.Buffer) error {
		s.ints = b.Interleave(s.ints)
		buf := new(bytes.Buffer)
		for i := range s.ints {
			if err := binary.Write(buf, binary.LittleEndian, int16(s.ints[i]*(resolution-1))); err != nil {
				return err
			}
		}
		_, err := s.wr.Write(buf.Bytes())
		return err
	}, nil
}

// Flush flushes the encoder buffers and closes the file.
func (s *Sink) Flush(string) error {
	if err := s.wr.Close(); err != nil {
		return err
	}
	return s.f.Close()
}

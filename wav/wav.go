// Package wav provides pump and sink of wav files.
package wav

import (
	"errors"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pipelined/cadence"
)

// value of wFormatTag for PCM data
const wavAudioFormat = 1

// ErrInvalidWav is returned when the file is not a valid wav.
var ErrInvalidWav = errors.New("wav is not valid")

type (
	// Pump reads from wav file.
	Pump struct {
		cadence.UID
		path    string
		file    *os.File
		decoder *wav.Decoder
		ib      *audio.IntBuffer
	}

	// Sink saves audio to wav file.
	Sink struct {
		cadence.UID
		path     string
		bitDepth int
		file     *os.File
		encoder  *wav.Encoder
		ib       *audio.IntBuffer
	}
)

// NewPump creates a new wav pump. The file is opened when the pipe
// binds the pump.
func NewPump(path string) *Pump {
	return &Pump{
		UID:  cadence.NewUID(),
		path: path,
	}
}

// Pump opens the file and returns the reading closure along with wav
// sample rate and number of channels.
func (p *Pump) Pump(sourceID string, bufferSize int) (func() (cadence.Buffer, error), int, int, error) {
	file, err := os.Open(p.path)
	if err != nil {
		return nil, 0, 0, err
	}
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, 0, 0, ErrInvalidWav
	}
	p.file = file
	p.decoder = decoder

	numChannels := decoder.Format().NumChannels
	sampleRate := int(decoder.SampleRate)
	resolution := resolution(int(decoder.BitDepth))
	p.ib = &audio.IntBuffer{
		Format:         decoder.Format(),
		Data:           make([]int, bufferSize*numChannels),
		SourceBitDepth: int(decoder.BitDepth),
	}
	return func() (cadence.Buffer, error) {
		readSamples, err := p.decoder.PCMBuffer(p.ib)
		if err != nil {
			return nil, err
		}
		if readSamples == 0 {
			return nil, io.EOF
		}
		b := asBuffer(p.ib.Data[:readSamples], numChannels, resolution)
		if b.Size() < bufferSize {
			return b, io.ErrUnexpectedEOF
		}
		return b, nil
	}, sampleRate, numChannels, nil
}

// Flush closes the file.
func (p *Pump) Flush(string) error {
	return p.file.Close()
}

// Interrupt closes the file when the run is canceled.
func (p *Pump) Interrupt(string) error {
	return p.file.Close()
}

// NewSink creates a new wav sink. The file is created when the pipe
// binds the sink.
func NewSink(path string, bitDepth int) *Sink {
	return &Sink{
		UID:      cadence.NewUID(),
		path:     path,
		bitDepth: bitDepth,
	}
}

// Sink creates the file and returns the writing closure.
func (s *Sink) Sink(sourceID string, sampleRate, numChannels, bufferSize int) (func(cadence.Buffer) error, error) {
	file, err := os.Create(s.path)
	if err != nil {
		return nil, err
	}
	s.file = file
	s.encoder = wav.NewEncoder(file, sampleRate, s.bitDepth, numChannels, wavAudioFormat)
	s.ib = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: s.bitDepth,
	}
	resolution := resolution(s.bitDepth)
	return func(b cadence.Buffer) error {
		asIntData(s.ib, b, resolution)
		return s.encoder.Write(s.ib)
	}, nil
}

// Flush finalizes the wav header and closes the file.
func (s *Sink) Flush(string) error {
	if err := s.encoder.Close(); err != nil {
		return err
	}
	return s.file.Close()
}

// resolution returns the scale of the bit depth.
func resolution(bitDepth int) int {
	return 1 << uint(bitDepth-1)
}

// asBuffer converts interleaved int data to a buffer.
func asBuffer(data []int, numChannels, resolution int) cadence.Buffer {
	frames := len(data) / numChannels
	b := cadence.EmptyBuffer(numChannels, frames)
	for i := 0; i < frames; i++ {
		for j := 0; j < numChannels; j++ {
			b[j][i] = float64(data[i*numChannels+j]) / float64(resolution)
		}
	}
	return b
}

// asIntData fills the int buffer with interleaved data of the buffer.
func asIntData(ib *audio.IntBuffer, b cadence.Buffer, resolution int) {
	numChannels := b.NumChannels()
	bufferLen := numChannels * b.Size()
	if cap(ib.Data) < bufferLen {
		ib.Data = make([]int, bufferLen)
	}
	ib.Data = ib.Data[:bufferLen]
	for i := range b[0] {
		for j := range b {
			ib.Data[i*numChannels+j] = int(b[j][i] * float64(resolution-1))
		}
	}
}

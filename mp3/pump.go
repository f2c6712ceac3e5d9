// Package mp3 provides pump and sink of mp3 files.
package mp3

import (
	"encoding/binary"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/pipelined/cadence"
)

// decoder always outputs 16-bit stereo
const (
	pumpNumChannels = 2
	resolution      = 1 << 15
)

// Pump reads from mp3 file.
type Pump struct {
	cadence.UID
	path string
	f    *os.File
	d    *mp3.Decoder
	done bool
}

// NewPump creates new mp3 pump. The file is opened when the pipe binds
// the pump.
func NewPump(path string) *Pump {
	return &Pump{
		UID:  cadence.NewUID(),
		path: path,
	}
}

// Pump opens the file and returns the reading closure.
func (p *Pump) Pump(sourceID string, bufferSize int) (func() (cadence.Buffer, error), int, int, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, 0, 0, err
	}
	d, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, 0, 0, err
	}
	p.f = f
	p.d = d
	p.done = false

	return func() (cadence.Buffer, error) {
		if p.done {
			return nil, io.EOF
		}
		b := cadence.EmptyBuffer(pumpNumChannels, bufferSize)
		var val int16
		frames := 0
		for frames < bufferSize {
			for j := 0; j < pumpNumChannels; j++ {
				if err := binary.Read(p.d, binary.LittleEndian, &val); err != nil {
					if err == io.EOF || err == io.ErrUnexpectedEOF {
						p.done = true
						if frames == 0 {
							return nil, io.EOF
						}
						return b.Slice(0, frames), io.ErrUnexpectedEOF
					}
					return nil, err
				}
				b[j][frames] = float64(val) / resolution
			}
			frames++
		}
		return b, nil
	}, p.d.SampleRate(), pumpNumChannels, nil
}

// Flush closes the decoder and the file.
func (p *Pump) Flush(string) error {
	return p.d.Close()
}

// Interrupt closes the decoder when the run is canceled.
func (p *Pump) Interrupt(string) error {
	return p.d.Close()
}

package wav_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/wav"
)

const (
	bufferSize = 64
	sampleRate = 44100
)

func TestSinkPumpRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	sink := wav.NewSink(path, 16)
	write, err := sink.Sink("", sampleRate, 2, bufferSize)
	assert.NoError(t, err)

	in := cadence.EmptyBuffer(2, bufferSize)
	for i := range in[0] {
		in[0][i] = 0.5
		in[1][i] = -0.25
	}
	assert.NoError(t, write(in))
	assert.NoError(t, write(in))
	assert.NoError(t, sink.Flush(""))

	pump := wav.NewPump(path)
	read, gotRate, gotChannels, err := pump.Pump("", bufferSize)
	assert.NoError(t, err)
	assert.Equal(t, sampleRate, gotRate)
	assert.Equal(t, 2, gotChannels)

	var out cadence.Buffer
	for {
		b, err := read()
		if b != nil {
			out = out.Append(b)
		}
		if err != nil {
			assert.Contains(t, []error{io.EOF, io.ErrUnexpectedEOF}, err)
			break
		}
	}
	assert.NoError(t, pump.Flush(""))

	assert.Equal(t, 2*bufferSize, out.Size())
	for i := range out[0] {
		assert.InDelta(t, 0.5, out[0][i], 1e-3)
		assert.InDelta(t, -0.25, out[1][i], 1e-3)
	}
}

func TestPumpMissingFile(t *testing.T) {
	pump := wav.NewPump(filepath.Join(t.TempDir(), "missing.wav"))
	_, _, _, err := pump.Pump("", bufferSize)
	assert.Error(t, err)
}

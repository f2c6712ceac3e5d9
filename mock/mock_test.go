package mock_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/mock"
)

func TestPump(t *testing.T) {
	pump := &mock.Pump{
		UID:   cadence.NewUID(),
		Limit: 2,
		Value: 0.7,
	}
	fn, sampleRate, numChannels, err := pump.Pump("", 16)
	assert.NoError(t, err)
	assert.Equal(t, 44100, sampleRate)
	assert.Equal(t, 1, numChannels)

	for i := 0; i < 2; i++ {
		b, err := fn()
		assert.NoError(t, err)
		assert.Equal(t, 16, b.Size())
		assert.Equal(t, 0.7, b[0][0])
	}
	_, err = fn()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, pump.Messages)
	assert.Equal(t, 32, pump.Samples)
}

func TestProcessor(t *testing.T) {
	proc := &mock.Processor{
		UID:  cadence.NewUID(),
		Gain: 0.5,
	}
	fn, err := proc.Process("", 44100, 1)
	assert.NoError(t, err)
	b, err := fn(cadence.Buffer{{1, 1, 1, 1}})
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, b[0])
}

func TestSink(t *testing.T) {
	sink := &mock.Sink{UID: cadence.NewUID()}
	fn, err := sink.Sink("", 44100, 1, 4)
	assert.NoError(t, err)
	assert.NoError(t, fn(cadence.Buffer{{1, 2}}))
	assert.NoError(t, fn(cadence.Buffer{{3, 4}}))
	assert.Equal(t, []float64{1, 2, 3, 4}, sink.Buffer[0])
	assert.Equal(t, 2, sink.Messages)
}

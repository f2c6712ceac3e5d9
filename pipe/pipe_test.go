package pipe_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/mock"
	"github.com/pipelined/cadence/pipe"
)

const bufferSize = 64

func TestPipe(t *testing.T) {
	defer goleak.VerifyNone(t)
	pump := &mock.Pump{
		UID:   cadence.NewUID(),
		Limit: 10,
		Value: 0.5,
	}
	proc := &mock.Processor{
		UID:  cadence.NewUID(),
		Gain: 2,
	}
	sink1 := &mock.Sink{UID: cadence.NewUID()}
	sink2 := &mock.Sink{UID: cadence.NewUID()}

	p, err := pipe.New(
		bufferSize,
		pipe.WithName("mock pipe"),
		pipe.WithPump(pump),
		pipe.WithProcessors(proc),
		pipe.WithSinks(sink1, sink2),
	)
	assert.NoError(t, err)

	err = pipe.Wait(p.Run())
	assert.NoError(t, err)
	p.Close()

	assert.Equal(t, 10, pump.Messages)
	assert.Equal(t, 10*bufferSize, pump.Samples)
	assert.Equal(t, 10*bufferSize, sink1.Buffer.Size())
	assert.Equal(t, 10*bufferSize, sink2.Buffer.Size())
	for _, v := range sink1.Buffer[0] {
		assert.Equal(t, 1.0, v)
	}
	assert.True(t, pump.Flushed)
}

func TestPipeError(t *testing.T) {
	defer goleak.VerifyNone(t)
	errPump := errors.New("pump failed")
	pump := &mock.Pump{
		UID:         cadence.NewUID(),
		ErrorOnCall: errPump,
	}
	sink := &mock.Sink{UID: cadence.NewUID()}

	p, err := pipe.New(
		bufferSize,
		pipe.WithPump(pump),
		pipe.WithSinks(sink),
	)
	assert.NoError(t, err)

	err = pipe.Wait(p.Run())
	assert.Equal(t, errPump, err)
	p.Close()
}

func TestPipeInvalidState(t *testing.T) {
	defer goleak.VerifyNone(t)
	pump := &mock.Pump{UID: cadence.NewUID(), Limit: 1}
	sink := &mock.Sink{UID: cadence.NewUID()}

	p, err := pipe.New(
		bufferSize,
		pipe.WithPump(pump),
		pipe.WithSinks(sink),
	)
	assert.NoError(t, err)

	// pause is not allowed before run
	err = pipe.Wait(p.Pause())
	assert.Equal(t, pipe.ErrInvalidState, err)
	p.Close()
}

func TestPipePauseResume(t *testing.T) {
	defer goleak.VerifyNone(t)
	pump := &mock.Pump{
		UID:   cadence.NewUID(),
		Value: 0.1,
	}
	sink := &mock.Sink{UID: cadence.NewUID()}

	p, err := pipe.New(
		bufferSize,
		pipe.WithPump(pump),
		pipe.WithSinks(sink),
	)
	assert.NoError(t, err)

	_ = p.Run()
	err = pipe.Wait(p.Pause())
	assert.NoError(t, err)
	// pause waits for sinks to consume all messages in flight
	consumed := sink.Messages
	assert.True(t, consumed > 0)

	err = pipe.Wait(p.Resume())
	assert.NoError(t, err)
	p.Close()
}

func TestPipeMetric(t *testing.T) {
	defer goleak.VerifyNone(t)
	pump := &mock.Pump{
		UID:   cadence.NewUID(),
		Limit: 5,
		Value: 1,
	}
	sink := &mock.Sink{UID: cadence.NewUID()}

	p, err := pipe.New(
		bufferSize,
		pipe.WithPump(pump),
		pipe.WithSinks(sink),
		pipe.WithMetric(metricMock{}),
	)
	assert.NoError(t, err)

	err = pipe.Wait(p.Run())
	assert.NoError(t, err)
	p.Close()
}

// metricMock counts nothing, it only proves the wiring.
type metricMock struct{}

func (metricMock) Meter(id string, sampleRate int) pipe.MeasureFunc {
	return func(size int) {}
}

package engine_test

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/engine"
	"github.com/pipelined/cadence/graph"
	"github.com/pipelined/cadence/mock"
	"github.com/pipelined/cadence/pattern"
	"github.com/pipelined/cadence/pipe"
)

const bufferSize = 512

// rate with exact frame<->duration conversion for timing tests
const testRate = 8000

func testEngine(t *testing.T, options ...engine.Option) (*engine.Engine, func() (cadence.Buffer, error)) {
	t.Helper()
	e, err := engine.New(options...)
	assert.NoError(t, err)
	pump, _, _, err := e.Pump("", bufferSize)
	assert.NoError(t, err)
	return e, pump
}

// A 440Hz sine at amplitude 0.1: one block of 512 frames at 44100Hz is
// a sine segment starting at phase 0 with peak within 0.1.
func TestPlaySine(t *testing.T) {
	e, pump := testEngine(t)
	_, err := e.Play(graph.Tone(0, graph.Sine, 440, 0.1))
	assert.NoError(t, err)

	out, err := pump()
	assert.NoError(t, err)
	assert.Equal(t, 1, out.NumChannels())
	assert.Equal(t, bufferSize, out.Size())

	assert.Equal(t, 0.0, out[0][0])
	for i := range out[0] {
		expected := 0.1 * math.Sin(2*math.Pi*440*float64(i)/44100)
		assert.InDelta(t, expected, out[0][i], 1e-9)
		assert.True(t, math.Abs(out[0][i]) <= 0.1)
	}
}

func TestPlayConfigError(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.Play(graph.Spec{
		Nodes: []graph.NodeSpec{{ID: "g", Type: graph.Gain}},
		Out:   "g",
	})
	assert.Error(t, err)
	assert.Equal(t, 0, e.Live())
}

func TestStop(t *testing.T) {
	e, pump := testEngine(t)
	h, err := e.Play(graph.Tone(0, graph.Sine, 440, 0.5))
	assert.NoError(t, err)

	_, err = pump()
	assert.NoError(t, err)
	assert.Equal(t, 1, e.Live())
	assert.Equal(t, 1, e.LiveNodes())

	assert.NoError(t, e.Stop(h))
	out, err := pump()
	assert.NoError(t, err)
	for i := range out[0] {
		assert.Equal(t, 0.0, out[0][i])
	}
	assert.Equal(t, 0, e.Live())
	assert.Equal(t, 0, e.LiveNodes())
	assert.Equal(t, 0, e.PendingEvents())

	// stopping again fails: handle was released
	assert.Equal(t, engine.ErrUnknownHandle, e.Stop(h))
}

func TestScheduleConflict(t *testing.T) {
	e, _ := testEngine(t)
	spec := graph.Tone(0, graph.Sine, 440, 0.1)
	assert.NoError(t, e.PlayAs("lead", spec))
	assert.Equal(t, engine.ErrScheduleConflict, e.PlayAs("lead", spec))
	assert.NoError(t, e.Stop("lead"))
	// handle is free again after stop
	assert.NoError(t, e.PlayAs("lead", spec))
}

func TestUnknownHandle(t *testing.T) {
	e, _ := testEngine(t)
	assert.Equal(t, engine.ErrUnknownHandle, e.Stop("missing"))
	assert.Equal(t, engine.ErrUnknownHandle, e.SetParam("missing", "osc", "freq", 1))
}

// Parameter scheduled at time T is reflected starting exactly at the
// block containing T, never earlier.
func TestSetParamAtBlockBoundary(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	h, err := e.Play(graph.Tone(0, graph.Square, 0, 1))
	assert.NoError(t, err)

	// due in the middle of the third block
	at := cadence.DurationOf(testRate, 2*bufferSize+100)
	assert.NoError(t, e.SetParamAt(h, at, "osc", "amp", 0))

	for block := 0; block < 2; block++ {
		out, err := pump()
		assert.NoError(t, err)
		for i := range out[0] {
			assert.Equal(t, 1.0, out[0][i], "block %v must not see the change", block)
		}
	}
	out, err := pump()
	assert.NoError(t, err)
	for i := range out[0] {
		assert.Equal(t, 0.0, out[0][i])
	}
}

func TestSetParamValidation(t *testing.T) {
	e, _ := testEngine(t)
	h, err := e.Play(graph.Tone(0, graph.Sine, 440, 0.1))
	assert.NoError(t, err)
	assert.Error(t, e.SetParam(h, "missing", "freq", 1))
	assert.Error(t, e.SetParam(h, "osc", "missing", 1))
	assert.NoError(t, e.SetParam(h, "osc", "freq", 880))
}

func TestPatternSelfSustains(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	step := cadence.DurationOf(testRate, 4*bufferSize)
	_, err := e.PlayPattern(engine.PatternSpec{
		Notes: pattern.Cycle(pattern.Seq(60, 62, 64, 65, 67)),
		Step:  step,
	})
	assert.NoError(t, err)

	// every block triggers a fresh voice: output stays non-silent and
	// events keep being rescheduled
	for block := 0; block < 8; block++ {
		out, err := pump()
		assert.NoError(t, err)
		assert.True(t, energy(out) > 0, "block %v is silent", block)
		assert.True(t, e.PendingEvents() > 0)
	}
}

func TestPatternFiniteReaped(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	step := cadence.DurationOf(testRate, bufferSize)
	_, err := e.PlayPattern(engine.PatternSpec{
		Notes: pattern.Seq(60, 64),
		Step:  step,
		Gate:  0.5,
		Voice: func(freq float64) graph.Spec {
			return graph.Voice(0, graph.Sine, freq, 0.3, 0.001, 0.001)
		},
	})
	assert.NoError(t, err)

	// 2 steps plus release tails fit in a few blocks
	for block := 0; block < 6; block++ {
		_, err := pump()
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, e.Live())
	assert.Equal(t, 0, e.PendingEvents())
}

func TestPatternStop(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	step := cadence.DurationOf(testRate, bufferSize)
	h, err := e.PlayPattern(engine.PatternSpec{
		Notes: pattern.Cycle(pattern.Seq(60, 62, 64)),
		Step:  step,
	})
	assert.NoError(t, err)

	for block := 0; block < 3; block++ {
		_, err := pump()
		assert.NoError(t, err)
	}
	assert.True(t, e.Live() > 0)

	assert.NoError(t, e.Stop(h))
	out, err := pump()
	assert.NoError(t, err)
	assert.Equal(t, 0.0, energy(out))
	assert.Equal(t, 0, e.Live())
	assert.Equal(t, 0, e.LiveNodes())
	assert.Equal(t, 0, e.PendingEvents())
}

func TestPatternRests(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	step := cadence.DurationOf(testRate, bufferSize)
	_, err := e.PlayPattern(engine.PatternSpec{
		Notes: pattern.Cycle(pattern.Seq(-1)),
		Step:  step,
	})
	assert.NoError(t, err)

	for block := 0; block < 3; block++ {
		out, err := pump()
		assert.NoError(t, err)
		assert.Equal(t, 0.0, energy(out))
	}
	assert.Equal(t, 0, e.Live())
	assert.True(t, e.PendingEvents() > 0)
}

func TestPatternValidation(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.PlayPattern(engine.PatternSpec{Step: time.Second})
	assert.Equal(t, engine.ErrPatternNotes, err)

	_, err = e.PlayPattern(engine.PatternSpec{Notes: pattern.Seq(60)})
	assert.Equal(t, engine.ErrPatternStep, err)

	// broken voice template surfaces at play time
	_, err = e.PlayPattern(engine.PatternSpec{
		Notes: pattern.Seq(60),
		Step:  time.Second,
		Voice: func(freq float64) graph.Spec {
			return graph.Spec{
				Nodes: []graph.NodeSpec{{ID: "g", Type: graph.Gain}},
				Out:   "g",
			}
		},
	})
	assert.Error(t, err)
}

// A voice driven to a non-finite value contributes silence for the
// block instead of failing the render thread.
func TestRenderFaultRecovered(t *testing.T) {
	e, pump := testEngine(t)
	h, err := e.Play(graph.Tone(0, graph.Square, 0, 1))
	assert.NoError(t, err)

	out, err := pump()
	assert.NoError(t, err)
	assert.Equal(t, 1.0, out[0][0])

	assert.NoError(t, e.SetParam(h, "osc", "amp", math.Inf(1)))
	out, err = pump()
	assert.NoError(t, err)
	assert.Equal(t, 0.0, energy(out))

	// recovery is per block: a finite value brings the voice back
	assert.NoError(t, e.SetParam(h, "osc", "amp", 0.5))
	out, err = pump()
	assert.NoError(t, err)
	assert.Equal(t, 0.5, out[0][0])
}

func TestLimit(t *testing.T) {
	e, pump := testEngine(t,
		engine.WithSampleRate(testRate),
		engine.WithLimit(cadence.DurationOf(testRate, 2*bufferSize)),
	)
	_, err := e.Play(graph.Tone(0, graph.Sine, 440, 0.1))
	assert.NoError(t, err)

	for block := 0; block < 2; block++ {
		out, err := pump()
		assert.NoError(t, err)
		assert.Equal(t, bufferSize, out.Size())
	}
	out, err := pump()
	assert.Nil(t, out)
	assert.Equal(t, io.EOF, err)
}

func TestNowAdvances(t *testing.T) {
	e, pump := testEngine(t, engine.WithSampleRate(testRate))
	assert.Equal(t, time.Duration(0), e.Now())
	_, err := pump()
	assert.NoError(t, err)
	assert.Equal(t, cadence.DurationOf(testRate, bufferSize), e.Now())
}

func TestStereoOutput(t *testing.T) {
	e, err := engine.New(engine.WithNumChannels(2))
	assert.NoError(t, err)
	pump, _, numChannels, err := e.Pump("", bufferSize)
	assert.NoError(t, err)
	assert.Equal(t, 2, numChannels)

	_, err = e.Play(graph.Tone(0, graph.Sine, 440, 0.1))
	assert.NoError(t, err)
	out, err := pump()
	assert.NoError(t, err)
	assert.Equal(t, 2, out.NumChannels())
	assert.Equal(t, out[0], out[1])
}

// The engine is a pipe pump: a bounded render feeds a sink through a
// pipe and ends the run with the limit.
func TestEngineAsPump(t *testing.T) {
	defer goleak.VerifyNone(t)
	e, err := engine.New(
		engine.WithSampleRate(testRate),
		engine.WithLimit(cadence.DurationOf(testRate, 4*bufferSize)),
	)
	assert.NoError(t, err)
	_, err = e.Play(graph.Tone(0, graph.Sine, 440, 0.1))
	assert.NoError(t, err)

	sink := &mock.Sink{UID: cadence.NewUID()}
	p, err := pipe.New(
		e.BufferSize(),
		pipe.WithPump(e),
		pipe.WithSinks(sink),
	)
	assert.NoError(t, err)
	assert.NoError(t, pipe.Wait(p.Run()))
	p.Close()

	assert.Equal(t, 4*bufferSize, sink.Buffer.Size())
	assert.True(t, energy(sink.Buffer) > 0)
}

func energy(b cadence.Buffer) float64 {
	var sum float64
	for i := range b {
		for j := range b[i] {
			sum += b[i][j] * b[i][j]
		}
	}
	return sum
}

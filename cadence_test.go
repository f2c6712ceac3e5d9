package cadence_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/cadence"
)

func TestBuffer(t *testing.T) {
	var b cadence.Buffer
	assert.Equal(t, 0, b.NumChannels())
	assert.Equal(t, 0, b.Size())

	b = cadence.EmptyBuffer(2, 512)
	assert.Equal(t, 2, b.NumChannels())
	assert.Equal(t, 512, b.Size())

	b = b.Append(cadence.EmptyBuffer(2, 256))
	assert.Equal(t, 768, b.Size())

	var appended cadence.Buffer
	appended = appended.Append(b)
	assert.Equal(t, 2, appended.NumChannels())
	assert.Equal(t, 768, appended.Size())
}

func TestBufferSlice(t *testing.T) {
	b := cadence.Buffer{{0, 1, 2, 3, 4}}
	tests := []struct {
		start    int
		len      int
		expected []float64
	}{
		{start: 0, len: 2, expected: []float64{0, 1}},
		{start: 3, len: 5, expected: []float64{3, 4}},
		{start: 5, len: 1, expected: nil},
		{start: -1, len: 1, expected: nil},
	}
	for _, test := range tests {
		s := b.Slice(test.start, test.len)
		if test.expected == nil {
			assert.Nil(t, s)
			continue
		}
		assert.Equal(t, test.expected, s[0])
	}
}

func TestInterleave(t *testing.T) {
	b := cadence.Buffer{{1, 2}, {3, 4}}
	assert.Equal(t, []float64{1, 3, 2, 4}, b.Interleave(nil))
}

func TestDurations(t *testing.T) {
	assert.Equal(t, time.Second, cadence.DurationOf(44100, 44100))
	assert.Equal(t, int64(22050), cadence.FramesOf(44100, 500*time.Millisecond))
}

func TestNoteToHz(t *testing.T) {
	assert.InDelta(t, 440, cadence.NoteToHz(69), 1e-9)
	assert.InDelta(t, 880, cadence.NoteToHz(81), 1e-9)
	assert.InDelta(t, 69, cadence.HzToNote(440), 1e-9)
}

func TestSingleUse(t *testing.T) {
	var once sync.Once
	assert.NoError(t, cadence.SingleUse(&once))
	assert.Equal(t, cadence.ErrSingleUseReused, cadence.SingleUse(&once))
}

func TestUID(t *testing.T) {
	u1 := cadence.NewUID()
	u2 := cadence.NewUID()
	assert.NotEqual(t, u1.ID(), u2.ID())
	assert.NotEmpty(t, u1.ID())
}

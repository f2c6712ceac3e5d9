package cadence

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/xid"
)

// Buffer is a non-interleaved block of samples. First dimension is
// for channels, second is for frames.
type Buffer [][]float64

// NumChannels returns number of channels in the buffer.
func (b Buffer) NumChannels() int {
	return len(b)
}

// Size returns number of frames per channel.
func (b Buffer) Size() int {
	if b.NumChannels() == 0 {
		return 0
	}
	return len(b[0])
}

// EmptyBuffer returns a zeroed buffer of requested dimensions.
func EmptyBuffer(numChannels int, bufferSize int) Buffer {
	b := make([][]float64, numChannels)
	for i := range b {
		b[i] = make([]float64, bufferSize)
	}
	return b
}

// Append adds source data to the end of the buffer.
// A new buffer is allocated if b is nil.
func (b Buffer) Append(source Buffer) Buffer {
	if b == nil {
		b = make([][]float64, source.NumChannels())
		for i := range b {
			b[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		b[i] = append(b[i], source[i]...)
	}
	return b
}

// Slice returns a new buffer with data from start position with defined
// length. If buffer doesn't have enough frames, a shorter buffer is returned.
func (b Buffer) Slice(start, len int) Buffer {
	if b == nil || start >= b.Size() || start < 0 {
		return nil
	}
	end := start + len
	result := make([][]float64, b.NumChannels())
	for i := range b {
		if end > b.Size() {
			result[i] = b[i][start:]
		} else {
			result[i] = b[i][start:end]
		}
	}
	return result
}

// Interleave flattens the buffer into interleaved frames. Used on the
// boundary with device and encoder sinks.
func (b Buffer) Interleave(dst []float64) []float64 {
	numChannels := b.NumChannels()
	if cap(dst) < numChannels*b.Size() {
		dst = make([]float64, numChannels*b.Size())
	}
	dst = dst[:numChannels*b.Size()]
	for i := range b[0] {
		for j := range b {
			dst[i*numChannels+j] = b[j][i]
		}
	}
	return dst
}

// DurationOf returns time duration of passed frames for this sample rate.
func DurationOf(sampleRate int, frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// FramesOf returns number of frames in the duration for this sample rate.
func FramesOf(sampleRate int, d time.Duration) int64 {
	return int64(d.Seconds() * float64(sampleRate))
}

// UID is a unique component identifier.
type UID struct {
	value string
}

// NewUID returns a new unique identifier.
func NewUID() UID {
	return UID{value: xid.New().String()}
}

// ID returns string value of identifier.
func (u UID) ID() string {
	return u.value
}

// ErrSingleUseReused is returned when a single-use entity is being reused.
var ErrSingleUseReused = errors.New("single use reused")

// SingleUse is designed to be used in Reset functions of components which
// cannot be run twice.
func SingleUse(once *sync.Once) error {
	err := ErrSingleUseReused
	once.Do(func() {
		err = nil
	})
	return err
}

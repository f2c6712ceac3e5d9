package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pipelined/cadence/sched"
)

func TestTickOrder(t *testing.T) {
	s := sched.New()
	var fired []int
	// scheduled out of order, same-time events keep schedule order
	s.Schedule(20, func() { fired = append(fired, 2) })
	s.Schedule(10, func() { fired = append(fired, 0) })
	s.Schedule(20, func() { fired = append(fired, 3) })
	s.Schedule(10, func() { fired = append(fired, 1) })
	s.Schedule(30, func() { fired = append(fired, 4) })

	assert.Equal(t, 4, s.Tick(20))
	assert.Equal(t, []int{0, 1, 2, 3}, fired)
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, 1, s.Tick(30))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestTickFiresNothingBeforeDue(t *testing.T) {
	s := sched.New()
	fired := false
	s.Schedule(100, func() { fired = true })
	assert.Equal(t, 0, s.Tick(99))
	assert.False(t, fired)
	assert.Equal(t, 1, s.Tick(100))
	assert.True(t, fired)
}

func TestCancel(t *testing.T) {
	s := sched.New()
	fired := false
	e := s.Schedule(10, func() { fired = true })
	e.Cancel()
	assert.Equal(t, 0, s.Tick(10))
	assert.False(t, fired)

	// canceling after firing is a no-op
	e2 := s.Schedule(20, func() { fired = true })
	s.Tick(20)
	assert.True(t, fired)
	e2.Cancel()
}

// Self-rescheduling is how patterns sustain themselves: a callback
// enqueues the next step. Such events must not fire within the tick
// that spawned them, even if already due.
func TestRescheduleMidCallback(t *testing.T) {
	s := sched.New()
	var fired []string
	s.Schedule(10, func() {
		fired = append(fired, "first")
		s.Schedule(10, func() {
			fired = append(fired, "second")
		})
	})

	assert.Equal(t, 1, s.Tick(10))
	assert.Equal(t, []string{"first"}, fired)
	assert.Equal(t, 1, s.Pending())

	assert.Equal(t, 1, s.Tick(10))
	assert.Equal(t, []string{"first", "second"}, fired)
}

func TestEventAt(t *testing.T) {
	s := sched.New()
	e := s.Schedule(42, func() {})
	assert.Equal(t, int64(42), e.At())
}

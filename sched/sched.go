// Package sched provides a frame-accurate event scheduler.
//
// The scheduler keeps a time-ordered queue of callbacks and fires all due
// callbacks on every Tick. It is not safe for concurrent use: the engine
// drives it from the single render goroutine, once per block, before the
// block is rendered.
package sched

import "container/heap"

type (
	// Event is a handle of a scheduled callback.
	Event struct {
		at    int64
		seq   uint64
		fn    func()
		done  bool
		index int // position in the heap, -1 once popped
	}

	// Scheduler is a priority-ordered timeline of callbacks keyed by
	// logical time in frames. Ties are broken by schedule order.
	Scheduler struct {
		events eventHeap
		seq    uint64
		due    []*Event // reused between ticks
	}
)

// New returns a new empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Schedule adds a callback due at provided frame. Callbacks are allowed
// to schedule new events: those become due on future ticks only, even if
// their time has already passed.
func (s *Scheduler) Schedule(at int64, fn func()) *Event {
	e := &Event{at: at, seq: s.seq, fn: fn}
	s.seq++
	heap.Push(&s.events, e)
	return e
}

// Cancel withdraws the event. Canceling a fired or already-canceled
// event is a no-op.
func (e *Event) Cancel() {
	e.done = true
}

// At returns the frame the event is due at.
func (e *Event) At() int64 {
	return e.at
}

// Done reports whether the event fired or was canceled.
func (e *Event) Done() bool {
	return e.done
}

// Tick fires all events with due time up to and including now, in
// ascending time order, ties in schedule order. Events scheduled from
// inside callbacks are collected for future ticks. Returns number of
// fired events.
func (s *Scheduler) Tick(now int64) int {
	// collect before firing so that callbacks cannot re-enter this tick
	s.due = s.due[:0]
	for s.events.Len() > 0 && s.events[0].at <= now {
		s.due = append(s.due, heap.Pop(&s.events).(*Event))
	}
	fired := 0
	for _, e := range s.due {
		if e.done {
			continue
		}
		e.done = true
		e.fn()
		fired++
	}
	return fired
}

// Pending returns number of scheduled events, canceled ones included
// until their due time passes.
func (s *Scheduler) Pending() int {
	return s.events.Len()
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

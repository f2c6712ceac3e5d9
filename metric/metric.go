// Package metric measures pipe components throughput and publishes the
// counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipelined/cadence"
	"github.com/pipelined/cadence/pipe"
)

const componentsLabel = "cadence.components"

const (
	// MessageCounter measures number of buffers.
	MessageCounter = "Messages"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts the duration of signal.
	DurationCounter = "Duration"
)

var (
	components = registry{
		m: make(map[string]*meter),
	}

	counters = []string{
		MessageCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
	}
)

// ExpVar implements pipe.Metric on expvar counters. Zero value is ready
// to use.
type ExpVar struct{}

// Meter returns a measure closure for the component. Consequent calls
// with the same id reuse published counters.
func (ExpVar) Meter(id string, sampleRate int) pipe.MeasureFunc {
	m := components.get(id)
	calledAt := time.Now()
	var (
		bufferSize     int
		bufferDuration time.Duration
	)
	return func(size int) {
		m.latency.set(time.Since(calledAt))
		m.messages.Add(1)
		m.samples.Add(int64(size))
		// recalculate buffer duration only when buffer size has changed
		if bufferSize != size {
			bufferSize = size
			bufferDuration = cadence.DurationOf(sampleRate, int64(size))
		}
		m.duration.add(bufferDuration)
		calledAt = time.Now()
	}
}

// Get returns metric values for provided component id.
func Get(id string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		if v := expvar.Get(key(id, counter)); v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// GetAll returns counters of all measured components.
func GetAll() map[string]map[string]string {
	components.Lock()
	defer components.Unlock()
	m := make(map[string]map[string]string)
	for id := range components.m {
		m[id] = Get(id)
	}
	return m
}

type registry struct {
	sync.Mutex
	m map[string]*meter
}

func (r *registry) get(id string) *meter {
	r.Lock()
	defer r.Unlock()
	if m, ok := r.m[id]; ok {
		return m
	}
	m := newMeter(id)
	r.m[id] = m
	return m
}

type meter struct {
	messages *expvar.Int
	samples  *expvar.Int
	latency  *duration
	duration *duration
}

func newMeter(id string) *meter {
	m := &meter{
		messages: expvar.NewInt(key(id, MessageCounter)),
		samples:  expvar.NewInt(key(id, SampleCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(id, LatencyCounter), m.latency)
	expvar.Publish(key(id, DurationCounter), m.duration)
	return m
}

func key(id, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, id, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)).String())
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}

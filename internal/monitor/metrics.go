package monitor

import (
	"math"
	"sync/atomic"
	"time"
)

// Counter is a thread-safe monotonic counter
type Counter struct {
	value atomic.Int64
	name  string
}

// NewCounter creates a new counter
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds n to the counter
func (c *Counter) Add(n int64) {
	c.value.Add(n)
}

// Get returns the current value
func (c *Counter) Get() int64 {
	return c.value.Load()
}

// Reset sets the counter back to 0
func (c *Counter) Reset() {
	c.value.Store(0)
}

// Name returns the counter name
func (c *Counter) Name() string {
	return c.name
}

// Gauge holds a value that moves up and down, such as requests in flight
type Gauge struct {
	value atomic.Int64
	peak  atomic.Int64
	name  string
}

// NewGauge creates a new gauge
func NewGauge(name string) *Gauge {
	return &Gauge{name: name}
}

// Inc raises the gauge by 1 and tracks the peak
func (g *Gauge) Inc() {
	v := g.value.Add(1)
	for {
		p := g.peak.Load()
		if v <= p || g.peak.CompareAndSwap(p, v) {
			return
		}
	}
}

// Dec lowers the gauge by 1
func (g *Gauge) Dec() {
	g.value.Add(-1)
}

// Get returns the current value
func (g *Gauge) Get() int64 {
	return g.value.Load()
}

// Peak returns the highest value seen
func (g *Gauge) Peak() int64 {
	return g.peak.Load()
}

// Name returns the gauge name
func (g *Gauge) Name() string {
	return g.name
}

const noMin = math.MaxInt64

// Timer records durations of one kind of operation
type Timer struct {
	count atomic.Int64
	total atomic.Int64
	min   atomic.Int64
	max   atomic.Int64
	name  string
}

// NewTimer creates a new timer
func NewTimer(name string) *Timer {
	t := &Timer{name: name}
	t.min.Store(noMin)
	return t
}

// Record adds one measurement
func (t *Timer) Record(d time.Duration) {
	nanos := d.Nanoseconds()
	t.count.Add(1)
	t.total.Add(nanos)

	for {
		current := t.min.Load()
		if nanos >= current || t.min.CompareAndSwap(current, nanos) {
			break
		}
	}
	for {
		current := t.max.Load()
		if nanos <= current || t.max.CompareAndSwap(current, nanos) {
			break
		}
	}
}

// Count returns the number of measurements
func (t *Timer) Count() int64 {
	return t.count.Load()
}

// TotalTime returns the sum of all measurements
func (t *Timer) TotalTime() time.Duration {
	return time.Duration(t.total.Load())
}

// MinTime returns the shortest measurement, or 0 if there is none
func (t *Timer) MinTime() time.Duration {
	v := t.min.Load()
	if v == noMin {
		return 0
	}
	return time.Duration(v)
}

// MaxTime returns the longest measurement
func (t *Timer) MaxTime() time.Duration {
	return time.Duration(t.max.Load())
}

// AvgTime returns the mean measurement
func (t *Timer) AvgTime() time.Duration {
	count := t.count.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(t.total.Load() / count)
}

// Reset clears all measurements
func (t *Timer) Reset() {
	t.count.Store(0)
	t.total.Store(0)
	t.min.Store(noMin)
	t.max.Store(0)
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

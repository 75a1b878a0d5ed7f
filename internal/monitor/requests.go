// Package monitor records per-operation statistics for backend requests.
package monitor

import (
	"sync"
	"time"
)

// OperationStats is a point-in-time view of one backend operation
type OperationStats struct {
	Operation string        `json:"operation"`
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	Retries   int64         `json:"retries"`
	Total     time.Duration `json:"total_ns"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
	Avg       time.Duration `json:"avg_ns"`
}

// Snapshot holds the statistics of every operation seen so far, in first-seen order
type Snapshot struct {
	Timestamp     time.Time        `json:"timestamp"`
	InFlight      int64            `json:"in_flight"`
	PeakInFlight  int64            `json:"peak_in_flight"`
	BytesSent     int64            `json:"bytes_sent"`
	BytesReceived int64            `json:"bytes_received"`
	Operations    []OperationStats `json:"operations"`
}

// Requests tracks backend calls. The zero value is not usable; call NewRequests.
type Requests struct {
	mu    sync.RWMutex
	ops   map[string]*operation
	order []string

	inFlight *Gauge
	sent     *Counter
	received *Counter
}

type operation struct {
	timer   *Timer
	errors  *Counter
	retries *Counter
}

// NewRequests creates an empty tracker
func NewRequests() *Requests {
	return &Requests{
		ops:      make(map[string]*operation),
		inFlight: NewGauge("requests_in_flight"),
		sent:     NewCounter("bytes_sent"),
		received: NewCounter("bytes_received"),
	}
}

func (r *Requests) operation(name string) *operation {
	r.mu.RLock()
	op, ok := r.ops[name]
	r.mu.RUnlock()
	if ok {
		return op
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if op, ok := r.ops[name]; ok {
		return op
	}
	op = &operation{
		timer:   NewTimer(name),
		errors:  NewCounter(name + "_errors"),
		retries: NewCounter(name + "_retries"),
	}
	r.ops[name] = op
	r.order = append(r.order, name)
	return op
}

// Track runs fn and records its duration and outcome under name
func (r *Requests) Track(name string, fn func() error) error {
	op := r.operation(name)
	r.inFlight.Inc()
	defer r.inFlight.Dec()

	start := time.Now()
	err := fn()
	op.timer.Record(time.Since(start))
	if err != nil {
		op.errors.Inc()
	}
	return err
}

// RecordRetry counts one retried attempt of name
func (r *Requests) RecordRetry(name string) {
	r.operation(name).retries.Inc()
}

// RecordBytes adds to the transferred byte totals
func (r *Requests) RecordBytes(sent, received int64) {
	r.sent.Add(sent)
	r.received.Add(received)
}

// Snapshot returns the current statistics
func (r *Requests) Snapshot() Snapshot {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	ops := make([]*operation, len(names))
	for i, name := range names {
		ops[i] = r.ops[name]
	}
	r.mu.RUnlock()

	snap := Snapshot{
		Timestamp:     time.Now(),
		InFlight:      r.inFlight.Get(),
		PeakInFlight:  r.inFlight.Peak(),
		BytesSent:     r.sent.Get(),
		BytesReceived: r.received.Get(),
		Operations:    make([]OperationStats, 0, len(names)),
	}
	for i, name := range names {
		op := ops[i]
		snap.Operations = append(snap.Operations, OperationStats{
			Operation: name,
			Count:     op.timer.Count(),
			Errors:    op.errors.Get(),
			Retries:   op.retries.Get(),
			Total:     op.timer.TotalTime(),
			Min:       op.timer.MinTime(),
			Max:       op.timer.MaxTime(),
			Avg:       op.timer.AvgTime(),
		})
	}
	return snap
}

// Totals sums calls and failures across operations
func (s Snapshot) Totals() (calls, failures int64) {
	for _, op := range s.Operations {
		calls += op.Count
		failures += op.Errors
	}
	return calls, failures
}

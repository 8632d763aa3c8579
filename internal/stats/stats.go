// Package stats tracks the pipeline's monotonic process-lifetime counters.
//
// Counters are incremented from multiple goroutines (receive loop, flush
// path) and read by logging and the metrics endpoint, so all access is
// atomic.
package stats

import "sync/atomic"

// Collector holds the pipeline counters.
type Collector struct {
	received atomic.Int64
	inserted atomic.Int64
	errors   atomic.Int64
	dropped  atomic.Int64
}

// NewCollector returns a zeroed collector.
func NewCollector() *Collector {
	return &Collector{}
}

// IncReceived counts one accepted trade frame.
func (c *Collector) IncReceived() {
	c.received.Add(1)
}

// AddInserted counts rows acknowledged by a successful flush.
func (c *Collector) AddInserted(n int64) {
	c.inserted.Add(n)
}

// IncErrors counts one failure: malformed frame, transport error, or a
// failed batch write (one per batch, not per event).
func (c *Collector) IncErrors() {
	c.errors.Add(1)
}

// IncDropped counts one frame discarded because the receive buffer was
// full. Backpressure loss, distinct from errors.
func (c *Collector) IncDropped() {
	c.dropped.Add(1)
}

// Snapshot returns a consistent-enough point-in-time read of all counters
// for reporting. Each counter is individually atomic.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Received: c.received.Load(),
		Inserted: c.inserted.Load(),
		Errors:   c.errors.Load(),
		Dropped:  c.dropped.Load(),
	}
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Received int64
	Inserted int64
	Errors   int64
	Dropped  int64
}

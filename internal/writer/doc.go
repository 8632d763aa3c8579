// Package writer implements the buffer & flush scheduler and the bronze
// persistence sink.
//
// The scheduler accumulates normalized trade events and flushes them when
// either the batch-size threshold or the flush interval is reached,
// whichever comes first. All three flush initiators (size trigger on the
// receive path, the interval ticker, and the final shutdown flush) are
// serialized: at most one batch is ever in flight, and the handoff of the
// accumulation to a flush is a single critical section.
//
// The sink performs one atomic multi-row write per flush (all events
// commit together or none do) and never retries internally. Failed
// batches are dropped and counted once; the ingester is at-most-once by
// design.
package writer

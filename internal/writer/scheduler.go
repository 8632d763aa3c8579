package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cryptodw/internal/model"
	"cryptodw/internal/stats"
)

// Scheduler owns the in-memory accumulation of trade events and decides
// when to flush it through the sink.
type Scheduler struct {
	cfg    Config
	sink   Sink
	stats  *stats.Collector
	logger *slog.Logger

	// mu guards the accumulation. The handoff of the current batch and
	// the start of a new empty accumulation happen under one hold.
	mu      sync.Mutex
	pending []model.TradeEvent

	// flushMu serializes whole flushes so concurrent triggers (size,
	// timer, shutdown) never interleave and at most one batch is in
	// flight to the sink.
	flushMu sync.Mutex
}

// NewScheduler creates a scheduler flushing through sink.
func NewScheduler(cfg Config, sink Sink, st *stats.Collector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg,
		sink:    sink,
		stats:   st,
		logger:  logger,
		pending: make([]model.TradeEvent, 0, cfg.BatchSize),
	}
}

// Add appends one event to the accumulation and flushes if the batch-size
// threshold is reached. Called from the receive path, so a size-triggered
// flush runs synchronously on that path.
func (s *Scheduler) Add(ctx context.Context, ev model.TradeEvent) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	full := len(s.pending) >= s.cfg.BatchSize
	s.mu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Run owns the interval trigger. It exits promptly when ctx is canceled;
// the final flush is the caller's responsibility (one Flush after both
// loops have exited).
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	s.logger.Info("flush scheduler started",
		"batch_size", s.cfg.BatchSize,
		"flush_interval", s.cfg.FlushInterval,
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Flush hands off the current accumulation and writes it through the sink.
// An empty accumulation is a no-op: no write is attempted. On write
// failure the batch is dropped and counted as one error.
func (s *Scheduler) Flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make([]model.TradeEvent, 0, s.cfg.BatchSize)
	s.mu.Unlock()

	start := time.Now()

	// Trigger contexts are canceled at shutdown. The write already in
	// flight must finish or hit its own deadline, so the sink call is
	// detached from the trigger's cancellation.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
	defer cancel()

	n, err := s.sink.Write(writeCtx, batch)
	if err != nil {
		s.stats.IncErrors()
		s.logger.Error("flush failed, dropping batch",
			"error", err,
			"count", len(batch),
			"duration", time.Since(start),
		)
		return
	}

	s.stats.AddInserted(n)
	s.logger.Debug("flushed batch",
		"count", n,
		"duration", time.Since(start),
	)
}

// Len returns the number of buffered events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

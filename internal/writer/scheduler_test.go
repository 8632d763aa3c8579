package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cryptodw/internal/model"
	"cryptodw/internal/stats"
)

// fakeSink records every batch handed to Write and can be told to fail.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]model.TradeEvent
	err     error
}

func (f *fakeSink) Write(ctx context.Context, events []model.TradeEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	batch := append([]model.TradeEvent(nil), events...)
	f.batches = append(f.batches, batch)
	return int64(len(batch)), nil
}

func (f *fakeSink) snapshot() [][]model.TradeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]model.TradeEvent, len(f.batches))
	copy(out, f.batches)
	return out
}

func testConfig() Config {
	return Config{
		BatchSize:     5,
		FlushInterval: time.Hour, // keep the timer out of size-trigger tests
		WriteTimeout:  time.Second,
	}
}

func event(id int) model.TradeEvent {
	return model.TradeEvent{
		Channel:     "matches",
		Payload:     []byte(fmt.Sprintf(`{"type":"match","trade_id":%d}`, id)),
		Fingerprint: fmt.Sprintf("fp-%d", id),
	}
}

func TestScheduler_SizeTrigger(t *testing.T) {
	sink := &fakeSink{}
	st := stats.NewCollector()
	sched := NewScheduler(testConfig(), sink, st, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sched.Add(ctx, event(i))
	}

	batches := sink.snapshot()
	if len(batches) != 1 {
		t.Fatalf("flushes = %d, want 1", len(batches))
	}
	if len(batches[0]) != 5 {
		t.Errorf("batch size = %d, want 5", len(batches[0]))
	}
	if sched.Len() != 0 {
		t.Errorf("pending after flush = %d, want 0", sched.Len())
	}
	if got := st.Snapshot().Inserted; got != 5 {
		t.Errorf("inserted = %d, want 5", got)
	}
}

func TestScheduler_EmptyFlushIsNoOp(t *testing.T) {
	sink := &fakeSink{}
	sched := NewScheduler(testConfig(), sink, stats.NewCollector(), nil)

	sched.Flush(context.Background())

	if n := len(sink.snapshot()); n != 0 {
		t.Errorf("writes = %d, want 0 for empty accumulation", n)
	}
}

func TestScheduler_TimerFlushesPartialBatch(t *testing.T) {
	cfg := testConfig()
	cfg.FlushInterval = 20 * time.Millisecond
	sink := &fakeSink{}
	st := stats.NewCollector()
	sched := NewScheduler(cfg, sink, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	sched.Add(ctx, event(1))
	sched.Add(ctx, event(2))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.snapshot()) >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	batches := sink.snapshot()
	if len(batches) == 0 {
		t.Fatal("timer did not flush the partial batch")
	}
	if len(batches[0]) != 2 {
		t.Errorf("batch size = %d, want 2", len(batches[0]))
	}
	if got := st.Snapshot().Inserted; got != 2 {
		t.Errorf("inserted = %d, want 2", got)
	}
}

func TestScheduler_WriteFailureDropsBatchAndCountsOnce(t *testing.T) {
	sink := &fakeSink{err: errors.New("connection refused")}
	st := stats.NewCollector()
	sched := NewScheduler(testConfig(), sink, st, nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sched.Add(ctx, event(i))
	}

	snap := st.Snapshot()
	if snap.Errors != 1 {
		t.Errorf("errors = %d, want 1 per failed flush, not per event", snap.Errors)
	}
	if snap.Inserted != 0 {
		t.Errorf("inserted = %d, want 0", snap.Inserted)
	}
	if sched.Len() != 0 {
		t.Errorf("pending = %d, want 0 (failed batch is dropped)", sched.Len())
	}

	// A later flush must carry only new events, never the dropped ones.
	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	sched.Add(ctx, event(100))
	sched.Flush(ctx)

	batches := sink.snapshot()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("batches after recovery = %v, want one batch of one event", batches)
	}
	if batches[0][0].Fingerprint != "fp-100" {
		t.Errorf("recovered batch carries %q, want fp-100", batches[0][0].Fingerprint)
	}
}

func TestScheduler_ConcurrentAddAndFlush(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 10
	sink := &fakeSink{}
	st := stats.NewCollector()
	sched := NewScheduler(cfg, sink, st, nil)

	ctx := context.Background()
	const producers = 4
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				sched.Add(ctx, event(p*perProducer+i))
			}
		}(p)
	}
	// Interval trigger racing the size trigger.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				sched.Flush(ctx)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	wg.Wait()
	close(stop)
	sched.Flush(ctx)

	seen := make(map[string]bool)
	total := 0
	for _, batch := range sink.snapshot() {
		for _, ev := range batch {
			if seen[ev.Fingerprint] {
				t.Fatalf("event %s written twice", ev.Fingerprint)
			}
			seen[ev.Fingerprint] = true
			total++
		}
	}
	if total != producers*perProducer {
		t.Errorf("written = %d, want %d (no loss, no duplication)", total, producers*perProducer)
	}
	if got := st.Snapshot().Inserted; got != int64(producers*perProducer) {
		t.Errorf("inserted = %d, want %d", got, producers*perProducer)
	}
}

// blockingSink holds Write open until released and records what the
// write context looked like at completion.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}

	mu          sync.Mutex
	ctxErr      error
	hasDeadline bool
}

func (s *blockingSink) Write(ctx context.Context, events []model.TradeEvent) (int64, error) {
	close(s.entered)
	<-s.release
	s.mu.Lock()
	s.ctxErr = ctx.Err()
	_, s.hasDeadline = ctx.Deadline()
	s.mu.Unlock()
	return int64(len(events)), nil
}

func TestScheduler_ShutdownDoesNotInterruptWrite(t *testing.T) {
	sink := &blockingSink{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	st := stats.NewCollector()
	sched := NewScheduler(testConfig(), sink, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Add(ctx, event(1))
	sched.Add(ctx, event(2))
	sched.Add(ctx, event(3))

	done := make(chan struct{})
	go func() {
		sched.Flush(ctx)
		close(done)
	}()

	<-sink.entered
	// Shutdown arrives while the write is in flight.
	cancel()
	close(sink.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not complete")
	}

	sink.mu.Lock()
	if sink.ctxErr != nil {
		t.Errorf("write context error = %v, want nil after trigger cancel", sink.ctxErr)
	}
	if !sink.hasDeadline {
		t.Error("write context has no deadline, want the configured write timeout applied")
	}
	sink.mu.Unlock()

	snap := st.Snapshot()
	if snap.Inserted != 3 {
		t.Errorf("inserted = %d, want 3 (batch must commit despite shutdown)", snap.Inserted)
	}
	if snap.Errors != 0 {
		t.Errorf("errors = %d, want 0", snap.Errors)
	}
}

func TestScheduler_FinalFlushOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	st := stats.NewCollector()
	sched := NewScheduler(testConfig(), sink, st, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	sched.Add(ctx, event(1))
	sched.Add(ctx, event(2))
	sched.Add(ctx, event(3))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}

	// The shutdown path flushes once more after Run exits.
	sched.Flush(context.Background())

	batches := sink.snapshot()
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("final flush wrote %v batches, want one batch of 3", len(batches))
	}
	if got := st.Snapshot().Inserted; got != 3 {
		t.Errorf("inserted = %d, want 3", got)
	}
}

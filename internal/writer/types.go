package writer

import (
	"context"
	"time"

	"cryptodw/internal/model"
)

// Config holds batching and flush settings.
type Config struct {
	BatchSize     int           // Size trigger: flush when this many events are buffered
	FlushInterval time.Duration // Time trigger: flush at least this often
	WriteTimeout  time.Duration // Deadline applied to each sink write
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// Sink persists one batch atomically: all events commit together or none
// do. On failure it returns 0 and the batch is not retried here.
type Sink interface {
	Write(ctx context.Context, events []model.TradeEvent) (int64, error)
}

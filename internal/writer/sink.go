package writer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cryptodw/internal/model"
)

// BronzeSink writes batches into the raw-ingestion table. The destination
// accepts duplicate fingerprints; deduplication is advisory and belongs to
// downstream consumers.
type BronzeSink struct {
	db *pgxpool.Pool
}

// NewBronzeSink creates a sink over the given pool.
func NewBronzeSink(db *pgxpool.Pool) *BronzeSink {
	return &BronzeSink{db: db}
}

// Write inserts the batch in one transaction via COPY. Any failure rolls
// the whole batch back and returns 0: no partial insertion is visible.
// The caller bounds the round trip with its context deadline.
func (s *BronzeSink) Write(ctx context.Context, events []model.TradeEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]any, len(events))
	for i, ev := range events {
		rows[i] = []any{ev.Channel, []byte(ev.Payload), ev.Fingerprint, ev.EventTime}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"bronze", "coinbase_trades_raw"},
		[]string{"channel", "payload", "payload_hash", "event_ts"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy trades: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return n, nil
}

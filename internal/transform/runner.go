// Package transform runs the batch promotions between warehouse layers:
// bronze raw payloads to typed silver rows, silver rows to gold
// aggregates. Each step is one SQL statement batch executed in its own
// transaction with a bounded retry loop around it.
package transform

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/bronze_to_silver.sql
var bronzeToSilverSQL string

//go:embed sql/silver_to_gold.sql
var silverToGoldSQL string

// Config controls the retry behavior shared by both steps.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns the retry settings used by scheduled runs.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		RetryDelay: 30 * time.Second,
	}
}

// SilverResult summarizes one bronze-to-silver run.
type SilverResult struct {
	Duration      time.Duration
	BronzeRecords int64
	SilverBefore  int64
	SilverAfter   int64
}

// NewRecords is the number of rows the run added to silver.
func (r SilverResult) NewRecords() int64 {
	return r.SilverAfter - r.SilverBefore
}

// GoldResult summarizes one silver-to-gold run.
type GoldResult struct {
	Duration   time.Duration
	OHLCBefore int64
	OHLCAfter  int64
	KPIBefore  int64
	KPIAfter   int64
}

// Runner executes the layer promotions against one pool.
type Runner struct {
	db     *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// NewRunner creates a runner with the given retry settings.
func NewRunner(db *pgxpool.Pool, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, cfg: cfg, logger: logger}
}

// BronzeToSilver promotes raw payloads into typed silver rows and reports
// the row-count delta.
func (r *Runner) BronzeToSilver(ctx context.Context) (SilverResult, error) {
	var res SilverResult
	err := r.withRetries(ctx, "bronze_to_silver", func(ctx context.Context) error {
		var err error
		res = SilverResult{}
		if res.BronzeRecords, err = r.countRows(ctx, "bronze.coinbase_trades_raw"); err != nil {
			return err
		}
		if res.SilverBefore, err = r.countRows(ctx, "silver.coinbase_trades"); err != nil {
			return err
		}

		start := time.Now()
		if err := r.execInTx(ctx, bronzeToSilverSQL); err != nil {
			return err
		}
		res.Duration = time.Since(start)

		if res.SilverAfter, err = r.countRows(ctx, "silver.coinbase_trades"); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return SilverResult{}, err
	}

	r.logger.Info("bronze to silver complete",
		"new_records", res.NewRecords(),
		"silver_total", res.SilverAfter,
		"duration", res.Duration,
	)
	return res, nil
}

// SilverToGold rebuilds the gold aggregates and reports the table sizes
// before and after.
func (r *Runner) SilverToGold(ctx context.Context) (GoldResult, error) {
	var res GoldResult
	err := r.withRetries(ctx, "silver_to_gold", func(ctx context.Context) error {
		var err error
		res = GoldResult{}
		if res.OHLCBefore, err = r.countRows(ctx, "gold.ohlc_1m"); err != nil {
			return err
		}
		if res.KPIBefore, err = r.countRows(ctx, "gold.daily_kpis"); err != nil {
			return err
		}

		start := time.Now()
		if err := r.execInTx(ctx, silverToGoldSQL); err != nil {
			return err
		}
		res.Duration = time.Since(start)

		if res.OHLCAfter, err = r.countRows(ctx, "gold.ohlc_1m"); err != nil {
			return err
		}
		if res.KPIAfter, err = r.countRows(ctx, "gold.daily_kpis"); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return GoldResult{}, err
	}

	r.logger.Info("silver to gold complete",
		"ohlc_1m_total", res.OHLCAfter,
		"daily_kpis_total", res.KPIAfter,
		"duration", res.Duration,
	)
	return res, nil
}

// withRetries runs fn up to MaxRetries+1 times, sleeping RetryDelay
// between attempts.
func (r *Runner) withRetries(ctx context.Context, step string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("retrying transform step",
				"step", step,
				"attempt", attempt+1,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", step, r.cfg.MaxRetries+1, lastErr)
}

func (r *Runner) execInTx(ctx context.Context, sql string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *Runner) countRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

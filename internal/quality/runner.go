package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Result is the outcome of one executed check. A query error marks the
// check failed rather than aborting the run.
type Result struct {
	CheckName string
	CheckType string
	TableName string
	Passed    bool
	Details   json.RawMessage
	Err       error
}

// Summary aggregates one run's results.
type Summary struct {
	RunID  string
	Total  int
	Passed int
	Failed int
}

// AllPassed reports whether every check in the run passed.
func (s Summary) AllPassed() bool {
	return s.Failed == 0
}

// Runner executes checks and persists their results.
type Runner struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewRunner creates a runner over the given pool.
func NewRunner(db *pgxpool.Pool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, logger: logger}
}

// NewRunID returns a short identifier grouping one run's results.
func NewRunID() string {
	return uuid.NewString()[:8]
}

// Run executes every check in order. Individual failures are recorded,
// not fatal.
func (r *Runner) Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		res := r.runOne(ctx, check)
		if res.Passed {
			r.logger.Info("check passed", "check", res.CheckName, "details", string(res.Details))
		} else {
			r.logger.Warn("check failed", "check", res.CheckName, "details", string(res.Details), "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, check Check) Result {
	res := Result{
		CheckName: check.Name,
		CheckType: check.Type,
		TableName: check.Table,
	}

	var name string
	if err := r.db.QueryRow(ctx, check.SQL).Scan(&name, &res.Passed, &res.Details); err != nil {
		res.Passed = false
		res.Err = fmt.Errorf("check %s: %w", check.Name, err)
	}
	return res
}

// Save writes the run's results as one batch.
func (r *Runner) Save(ctx context.Context, results []Result, runID string) error {
	batch := &pgx.Batch{}
	for _, res := range results {
		details := res.Details
		if details == nil {
			details = json.RawMessage("{}")
		}
		batch.Queue(
			`INSERT INTO bronze.dq_check_results
			 (check_name, check_type, table_name, passed, details, run_id)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			res.CheckName, res.CheckType, res.TableName, res.Passed, details, runID,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
	}
	return nil
}

// Summarize folds results into per-run totals.
func Summarize(runID string, results []Result) Summary {
	s := Summary{RunID: runID, Total: len(results)}
	for _, res := range results {
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

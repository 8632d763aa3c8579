package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptodw/internal/config"
	"cryptodw/internal/database"
	"cryptodw/internal/quality"
	"cryptodw/internal/transform"
	"cryptodw/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ingestor.yaml", "path to config file")
	skipDQ := flag.Bool("skip-dq", false, "skip data quality checks")
	reportPath := flag.String("report", "", "write a markdown run report to this path")
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting pipeline",
		"version", version.Version,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	runner := transform.NewRunner(pool, transform.Config{
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetryDelay: cfg.Pipeline.RetryDelay,
	}, logger)

	silver, err := runner.BronzeToSilver(ctx)
	if err != nil {
		logger.Error("bronze to silver failed", "error", err)
		os.Exit(1)
	}

	gold, err := runner.SilverToGold(ctx)
	if err != nil {
		logger.Error("silver to gold failed", "error", err)
		os.Exit(1)
	}

	var summary quality.Summary
	var results []quality.Result
	if !*skipDQ {
		runID := quality.NewRunID()
		logger.Info("running data quality checks", "run_id", runID)

		dq := quality.NewRunner(pool, logger)
		results = dq.Run(ctx, quality.DefaultChecks())
		if err := dq.Save(ctx, results, runID); err != nil {
			// Saved results are an audit trail, not a gate.
			logger.Warn("could not save check results", "error", err)
		}
		summary = quality.Summarize(runID, results)
		logger.Info("data quality summary",
			"run_id", summary.RunID,
			"passed", summary.Passed,
			"failed", summary.Failed,
		)
	}

	if *reportPath != "" {
		report := buildReport(silver, gold, summary, *skipDQ)
		if err := os.WriteFile(*reportPath, []byte(report), 0o644); err != nil {
			logger.Warn("could not write report", "path", *reportPath, "error", err)
		} else {
			logger.Info("report written", "path", *reportPath)
		}
	}

	logger.Info("pipeline complete",
		"silver_new", silver.NewRecords(),
		"ohlc_1m_total", gold.OHLCAfter,
		"daily_kpis_total", gold.KPIAfter,
	)

	if !*skipDQ && !summary.AllPassed() {
		os.Exit(1)
	}
}

// buildReport renders a markdown summary of the run.
func buildReport(silver transform.SilverResult, gold transform.GoldResult, summary quality.Summary, skippedDQ bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Pipeline Run Report\n")
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", time.Now().Format(time.RFC3339))

	fmt.Fprintf(&b, "## Bronze to Silver\n")
	fmt.Fprintf(&b, "- Duration: %.2fs\n", silver.Duration.Seconds())
	fmt.Fprintf(&b, "- New records: %d\n", silver.NewRecords())
	fmt.Fprintf(&b, "- Total silver records: %d\n\n", silver.SilverAfter)

	fmt.Fprintf(&b, "## Silver to Gold\n")
	fmt.Fprintf(&b, "- Duration: %.2fs\n", gold.Duration.Seconds())
	fmt.Fprintf(&b, "- OHLC 1m records: %d\n", gold.OHLCAfter)
	fmt.Fprintf(&b, "- Daily KPI records: %d\n\n", gold.KPIAfter)

	fmt.Fprintf(&b, "## Data Quality\n")
	if skippedDQ {
		fmt.Fprintf(&b, "- Skipped\n")
	} else {
		fmt.Fprintf(&b, "- Run ID: %s\n", summary.RunID)
		fmt.Fprintf(&b, "- Passed: %d/%d\n", summary.Passed, summary.Total)
		if summary.AllPassed() {
			fmt.Fprintf(&b, "- Status: all passed\n")
		} else {
			fmt.Fprintf(&b, "- Status: %d failed\n", summary.Failed)
		}
	}

	return b.String()
}

// Package quality runs data-quality checks against the warehouse and
// records the outcomes in bronze.dq_check_results.
package quality

// Check is one standalone query returning (check_name, passed, details).
type Check struct {
	Name  string
	Type  string
	Table string
	SQL   string
}

// DefaultChecks covers freshness, volume, nulls, duplicates and ranges
// across the bronze and silver layers.
func DefaultChecks() []Check {
	return []Check{
		{
			Name:  "bronze_freshness",
			Type:  "freshness",
			Table: "bronze.coinbase_trades_raw",
			SQL: `
SELECT
    'bronze_freshness' AS check_name,
    CASE
        WHEN MAX(ingest_ts) >= NOW() - INTERVAL '10 minutes' THEN TRUE
        ELSE FALSE
    END AS passed,
    jsonb_build_object(
        'last_ingest_ts', MAX(ingest_ts)::text,
        'age_seconds', EXTRACT(EPOCH FROM (NOW() - MAX(ingest_ts)))
    ) AS details
FROM bronze.coinbase_trades_raw`,
		},
		{
			Name:  "silver_freshness",
			Type:  "freshness",
			Table: "silver.coinbase_trades",
			SQL: `
SELECT
    'silver_freshness' AS check_name,
    CASE
        WHEN MAX(trade_time) >= NOW() - INTERVAL '15 minutes' THEN TRUE
        ELSE FALSE
    END AS passed,
    jsonb_build_object(
        'last_trade_time', MAX(trade_time)::text,
        'age_seconds', EXTRACT(EPOCH FROM (NOW() - MAX(trade_time)))
    ) AS details
FROM silver.coinbase_trades`,
		},
		{
			Name:  "bronze_volume_5m",
			Type:  "volume",
			Table: "bronze.coinbase_trades_raw",
			SQL: `
SELECT
    'bronze_volume_5m' AS check_name,
    CASE WHEN COUNT(*) > 0 THEN TRUE ELSE FALSE END AS passed,
    jsonb_build_object('record_count', COUNT(*)) AS details
FROM bronze.coinbase_trades_raw
WHERE ingest_ts >= NOW() - INTERVAL '5 minutes'`,
		},
		{
			Name:  "silver_no_null_price",
			Type:  "null_check",
			Table: "silver.coinbase_trades",
			SQL: `
SELECT
    'silver_no_null_price' AS check_name,
    CASE WHEN COUNT(*) = 0 THEN TRUE ELSE FALSE END AS passed,
    jsonb_build_object('null_count', COUNT(*)) AS details
FROM silver.coinbase_trades
WHERE price IS NULL`,
		},
		{
			Name:  "silver_no_duplicates",
			Type:  "duplicate",
			Table: "silver.coinbase_trades",
			SQL: `
SELECT
    'silver_no_duplicates' AS check_name,
    CASE WHEN COUNT(*) = 0 THEN TRUE ELSE FALSE END AS passed,
    jsonb_build_object('duplicate_count', COUNT(*)) AS details
FROM (
    SELECT trade_id
    FROM silver.coinbase_trades
    GROUP BY trade_id
    HAVING COUNT(*) > 1
) dups`,
		},
		{
			Name:  "silver_no_negative_price",
			Type:  "range",
			Table: "silver.coinbase_trades",
			SQL: `
SELECT
    'silver_no_negative_price' AS check_name,
    CASE WHEN COUNT(*) = 0 THEN TRUE ELSE FALSE END AS passed,
    jsonb_build_object('negative_count', COUNT(*)) AS details
FROM silver.coinbase_trades
WHERE price < 0`,
		},
	}
}

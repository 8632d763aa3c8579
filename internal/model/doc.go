// Package model defines shared data types used across the ingestion pipeline.
//
// Conventions:
//   - Payloads: raw JSON bytes exactly as received from the feed
//   - Fingerprints: 40-character lowercase hex (SHA-1 over canonical JSON)
//   - Timestamps: timezone-aware time.Time; nil when the feed omitted the
//     field or it could not be parsed
package model

// Package database provides the PostgreSQL connection pool for the
// warehouse. The ingestor's bronze sink, the transform steps, and the
// quality runner all share one pool against the same database.
package database

// Package history implements the append-only rebase history store.
//
// The contract is "append-only, queryable by epoch": records are never
// updated or deleted. The in-memory log is the source of truth for
// queries; an optional Writer drains appended records through a queue
// into PostgreSQL in batches for durable audit.
package history

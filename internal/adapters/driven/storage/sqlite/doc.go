// Package sqlite provides durable SQLite-backed implementations of
// the storage ports.
//
// The database runs in WAL mode. Task claiming wraps select-and-mark
// in a transaction whose UPDATE re-checks the pending status, so
// concurrent workers can never claim the same task.
package sqlite

// Package repositories implements SQLite persistence for the local seed run history.
//
// Key Implementations:
//   - [SeedRunRepository] : one row per seeder invocation plus its per-record errors
//
// Sequence numbers provide stable, human-readable ordering (e.g. run #42) independent of UUIDs and start times.
// Counters live in dedicated single-row sequence tables and are incremented in the same transaction as the insert.
package repositories

// Package store provides a SQLite-backed artifact store for compiled
// selects.
//
// Each named query compiles to one row holding the canonical JSON
// encoding of its CompiledSelect, the content fingerprint of that
// encoding and the source tables it reads from. The ordered parameter
// list is mirrored into compiled_params so callers can look up the
// runtime values a stored select needs without decoding the IR.
//
// Rewriting a name replaces its row. A monotonically increasing seq
// column records write order; listings are ordered by name so output is
// stable across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

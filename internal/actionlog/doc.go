// Package actionlog is the durable, append-only record of every action
// invocation and completion across all flows.
//
// Records are never mutated or deleted; corrections happen by appending new
// records. Appends are idempotent: record IDs are content-addressed, so
// re-appending the same record is a no-op. The log provides the provenance
// lookups (by flow, by parent) that the engine and the trace builder are
// built on.
//
// Storage is SQLite in WAL mode, which allows trace construction to read a
// consistent snapshot while the engine keeps appending to the same flow.
package actionlog

// Package store persists UID records and serializes access to them.
//
// Store wraps a Backend with a single mutex. Update runs load → mutate → save
// under the lock; View runs load → read. Storage failures never reach the
// caller: a failed load is replaced with an empty set and a failed save is
// logged.
//
// Backends:
//   - File   — JSON object on local disk, created as {} when absent
//   - Remote — loads from a read-only snapshot URL, saves to a local file
//     that is never read back
//   - SQLite — one row per UID
//   - Redis  — one hash, field per UID
package store

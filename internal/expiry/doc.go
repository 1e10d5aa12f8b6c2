// Package expiry models UID lifetimes.
//
// An Expiration is either permanent or an absolute local timestamp with
// second precision. Its persisted form is the string "permanent" or
// "YYYY-MM-DD HH:MM:SS"; the fixed-width layout lets the reconciler compare
// timestamps as strings.
//
// Two expiry rules coexist:
//   - DueAt(now)     — inclusive, used by the reconciler to delete entries
//   - ExpiredAt(now) — strict, used by the query endpoint
//
// An entry whose timestamp equals the current second can therefore be
// reported valid by a query and removed by the reconciler in the same second.
package expiry

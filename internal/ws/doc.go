// Package ws implements the WebSocket hub for uidkeeper.
//
// Hub manages a set of connected clients. It sends the full UID set on
// connect and then on every interval, and pushes lifecycle events when the
// API adds a UID or the reconciler removes one.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the snapshot ticker; it blocks until ctx is cancelled
// and then closes all active connections.
// Hub.UIDAdded and Hub.Reconciled satisfy the api and reconciler listener
// interfaces.
//
// Message format:
//
//	{"event": "snapshot",    "data": {"uids": [{"uid": "...", "expires_at": "..."}], "generated_at": "..."}}
//	{"event": "uid_added",   "data": {"uid": "...", "expires_at": "..."}}
//	{"event": "uid_expired", "data": {"uid": "..."}}
//
// The upgrader accepts all origins. The endpoint is mounted at /ws/stream.
package ws

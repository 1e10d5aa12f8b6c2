// Package app assembles a running uidkeeper process: storage backend, store
// lock, registrar, reconciler, WebSocket hub, metrics and HTTP routes.
//
// Routes served by App.Handler:
//
//	GET /add_uid          — see package api
//	GET /get_time/{uid}   — see package api
//	GET /healthz          — liveness
//	GET /metrics          — Prometheus text exposition
//	GET /ws/stream        — WebSocket feed of UID snapshots and events
package app

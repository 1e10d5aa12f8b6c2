// Package api implements the HTTP API for uidkeeper.
//
// New(store, registrar, listeners...) returns a Handler that serves:
//
//	GET /add_uid?uid=&time=&type=&permanent=  — add or overwrite a UID
//	GET /get_time/{uid}                       — remaining lifetime of a UID
//	GET /healthz                              — liveness and active backend
//
// Validation order for /add_uid: uid, then permanent, then presence of time
// and type, then time as an integer, then type as one of days, months, years
// or seconds. Months are 30 days and years 365 days.
//
// All responses are JSON. Client errors use {"error": "..."} with 400/404.
// Storage and registrar failures are never surfaced; a lost store simply
// reads as "UID not found".
//
// AccessLog is the request-ID and access-log middleware used by the server.
package api

package api

import "github.com/uidkeeper/uidkeeper/internal/expiry"

// AddResponse is the payload for GET /add_uid.
type AddResponse struct {
	UID       string `json:"uid"`
	ExpiresAt string `json:"expires_at"` // canonical timestamp or "never"
}

// PermanentResponse is the payload for GET /get_time/{uid} on a permanent UID.
type PermanentResponse struct {
	UID     string `json:"uid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RemainingResponse is the payload for GET /get_time/{uid} on a live UID.
type RemainingResponse struct {
	UID           string           `json:"uid"`
	RemainingTime expiry.Remaining `json:"remaining_time"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

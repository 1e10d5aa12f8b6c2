// Package reconciler runs the background expiry loop.
//
// Each cycle holds the store lock for its whole load → scan → save sequence.
// A UID is due when its timestamp is at or before the current second; due
// UIDs are removed from the remote registrar (best effort) and then from the
// store. Permanent UIDs are never touched. The loop is a plain full scan on
// a fixed interval.
package reconciler

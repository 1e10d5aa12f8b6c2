// Package metrics keeps process counters and renders them in the Prometheus
// text exposition format on GET /metrics.
package metrics

// Package monitor exposes the optional HTTP endpoints for health checks,
// session inspection, and Prometheus metrics while the capture tool runs.
package monitor

// ABOUTME: Metrics package for the export service
// ABOUTME: Prometheus collectors on a private registry
// Package metrics holds the Prometheus collectors of the export service.
// Each Metrics value owns its registry so tests can create as many as they
// need.
package metrics

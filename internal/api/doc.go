// Package api hosts the HTTP server for the venue ingestion service.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/venues/process to queue a venue record.
//   - GET /v1/runs/{run_id} to read run status.
package api

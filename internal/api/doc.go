// Package api implements the HTTP server for the door sensor.
//
// This package provides:
//   - GET /status, the plain-text door state endpoint
//   - Optional JSON diagnostics under /api/v1 (health, metrics, latest
//     reading, transition history)
//   - WebSocket hub broadcasting door transitions
//   - Middleware stack (request ID, logging, recovery)
//
// # Architecture
//
// Every /status request runs a fresh door.Monitor check: one bus read, a
// kickstart and a single re-read if the first read classified as I/O failure.
// Nothing is cached between requests. Recorders attached to the monitor
// (MQTT, InfluxDB, SQLite history, the WebSocket hub) see each reading after
// the response state is decided.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and the history database are all optional. Without them the
// status endpoint behaves identically; only the matching diagnostics fields
// and routes are absent or report unavailable.
package api

// Package persistence stores versioned snapshots of the agent type catalog
// and the task graph of a crew run, so orchestration state survives a
// service restart.
//
// Supported backends:
//   - Memory: development and tests (default)
//   - File: single-node deployments, one JSON file per run
//   - Redis: distributed deployments
//   - SQL (gorm): sqlite or postgres
package persistence

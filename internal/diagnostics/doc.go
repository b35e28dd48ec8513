// Package diagnostics exposes the node's observable state.
//
// It collects point-in-time snapshots of the pub/sub core and the
// broadcast link, persists status transitions to a local SQLite journal,
// and forwards counters to InfluxDB for time-series analysis.
//
// Everything here is strictly observational: diagnostics never influence
// message flow, and a missing or failing sink never blocks the node.
package diagnostics

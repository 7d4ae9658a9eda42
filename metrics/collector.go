// Package metrics provides the MetricsCollector interface for aggregating metrics.
// This is a molecule that composes the atom-level types from types.go.
package metrics

// MetricsCollector defines the interface for collecting metrics from various sources.
// This molecule aggregates TaskRecord atoms and database reachability into a
// unified interface for the dashboard API.
//
// Implementation strategy:
// - Implementations should aggregate data from chat processing and database health checks
// - Methods should be concurrency-safe
// - Zero values should be returned for unavailable metrics
type MetricsCollector interface {
	// RecordTask logs a completed task execution.
	// Aggregates TaskRecord atoms into the metrics system.
	RecordTask(task TaskRecord)

	// GetTaskMetrics returns aggregated task processing statistics.
	// Composes multiple TaskRecord atoms into TaskMetrics summary.
	GetTaskMetrics() TaskMetrics

	// GetRecentTasks returns the N most recent task records.
	// Provides access to individual TaskRecord atoms.
	GetRecentTasks(limit int) []TaskRecord

	// UpdateDatabaseStatus records the result of the latest database health check.
	// System health is derived from this flag.
	UpdateDatabaseStatus(connected bool)

	// GetSystemStatus returns the overall system health status.
	// Composes SystemStatus atom from collected metrics.
	GetSystemStatus() SystemStatus
}

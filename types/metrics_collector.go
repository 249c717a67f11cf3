package types

// MetricsCollector defines methods for recording scheduler metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called on the scheduling hot path from many goroutines and must
// be thread-safe.
type MetricsCollector interface {
	SchedulerMetrics
	TopologyMetrics
}

// SchedulerMetrics defines metrics for task assignment.
type SchedulerMetrics interface {
	// RecordSchedule records a successful assignment.
	//
	// Parameters:
	//   - category: Task category name
	//   - path: Ring that produced the server ("category" or "general")
	//   - duration: Time taken in seconds
	RecordSchedule(category string, path string, duration float64)

	// RecordScheduleError records a failed assignment.
	//
	// Parameters:
	//   - reason: Failure reason ("invalid_task", "unknown_category", "no_servers")
	RecordScheduleError(reason string)

	// RecordWalkSteps records how many virtual nodes a ring walk skipped.
	//
	// Parameters:
	//   - ring: Ring walked ("general" or a category name)
	//   - steps: Number of overloaded virtual nodes skipped
	RecordWalkSteps(ring string, steps int)

	// RecordAdmission records a server admitted into a category ring.
	RecordAdmission(category string)

	// RecordBoundOverflow records a walk that completed a full lap without
	// finding a server within the bound.
	RecordBoundOverflow(ring string)

	// RecordThresholds sets the current scheduler thresholds (gauge metrics).
	RecordThresholds(loadSum int64, maxAssignedLoad float64, boundLoadThreshold int)
}

// TopologyMetrics defines metrics for server pool changes.
type TopologyMetrics interface {
	// RecordRebuild records a full ring rebuild.
	//
	// Parameters:
	//   - reason: Rebuild trigger ("add_server", "remove_server")
	//   - duration: Time taken in seconds
	//   - virtualNodes: Total virtual nodes across all rings after the rebuild
	RecordRebuild(reason string, duration float64, virtualNodes int)

	// RecordServerCount sets the current server count (gauge metric).
	RecordServerCount(count int)

	// RecordCategoryServers sets the number of servers admitted into a category (gauge metric).
	RecordCategoryServers(category string, count int)
}

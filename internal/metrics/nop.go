// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/David-Tong/consistent-hashing-scheduler/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Used as the scheduler default.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	sched, err := chs.NewScheduler(servers, &cfg, chs.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// SchedulerMetrics implementation

// RecordSchedule discards the assignment metric.
func (n *NopMetrics) RecordSchedule(_ /* category */, _ /* path */ string, _ /* duration */ float64) {
	// No-op
}

// RecordScheduleError discards the failure metric.
func (n *NopMetrics) RecordScheduleError(_ /* reason */ string) {
	// No-op
}

// RecordWalkSteps discards the walk length metric.
func (n *NopMetrics) RecordWalkSteps(_ /* ring */ string, _ /* steps */ int) {
	// No-op
}

// RecordAdmission discards the admission metric.
func (n *NopMetrics) RecordAdmission(_ /* category */ string) {
	// No-op
}

// RecordBoundOverflow discards the overflow metric.
func (n *NopMetrics) RecordBoundOverflow(_ /* ring */ string) {
	// No-op
}

// RecordThresholds discards the threshold gauges.
func (n *NopMetrics) RecordThresholds(_ /* loadSum */ int64, _ /* maxAssignedLoad */ float64, _ /* boundLoadThreshold */ int) {
	// No-op
}

// TopologyMetrics implementation

// RecordRebuild discards the rebuild metric.
func (n *NopMetrics) RecordRebuild(_ /* reason */ string, _ /* duration */ float64, _ /* virtualNodes */ int) {
	// No-op
}

// RecordServerCount discards the server count gauge.
func (n *NopMetrics) RecordServerCount(_ /* count */ int) {
	// No-op
}

// RecordCategoryServers discards the category size gauge.
func (n *NopMetrics) RecordCategoryServers(_ /* category */ string, _ /* count */ int) {
	// No-op
}

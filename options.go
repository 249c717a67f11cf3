package chs

// Option configures a Scheduler with optional dependencies.
type Option func(*schedulerOptions)

// schedulerOptions holds optional Scheduler configuration.
type schedulerOptions struct {
	metrics MetricsCollector
	logger  Logger
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewScheduler
//
// Example:
//
//	collector := metrics.NewPrometheus(prometheus.DefaultRegisterer, "chs")
//	sched, err := chs.NewScheduler(servers, &cfg, chs.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *schedulerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewScheduler
//
// Example:
//
//	logger := logging.NewSlog(slog.Default())
//	sched, err := chs.NewScheduler(servers, &cfg, chs.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *schedulerOptions) {
		o.logger = logger
	}
}

package intake

import "time"

// Config configures the intake service and client.
type Config struct {
	// SubjectPrefix prefixes every subject. Default: "chs"
	SubjectPrefix string `yaml:"subjectPrefix"`

	// QueueGroup lets several service instances share one subject.
	// Default: "chs-scheduler"
	QueueGroup string `yaml:"queueGroup"`

	// RequestTimeout bounds client requests without a context deadline.
	// Default: 2s
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// Journal enables the JetStream assignment journal.
	Journal bool `yaml:"journal"`

	// JournalStream names the journal stream. Default: "CHS_ASSIGNMENTS"
	JournalStream string `yaml:"journalStream"`

	// JournalMaxAge bounds journal retention. Default: 24h
	JournalMaxAge time.Duration `yaml:"journalMaxAge"`
}

// DefaultConfig returns the default intake configuration.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix:  "chs",
		QueueGroup:     "chs-scheduler",
		RequestTimeout: 2 * time.Second,
		JournalStream:  "CHS_ASSIGNMENTS",
		JournalMaxAge:  24 * time.Hour,
	}
}

// SetDefaults fills zero-valued fields in cfg with values from DefaultConfig().
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = defaults.SubjectPrefix
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = defaults.QueueGroup
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.JournalStream == "" {
		cfg.JournalStream = defaults.JournalStream
	}
	if cfg.JournalMaxAge == 0 {
		cfg.JournalMaxAge = defaults.JournalMaxAge
	}
}

// ScheduleSubject returns the subject of schedule requests.
func (cfg Config) ScheduleSubject() string { return cfg.SubjectPrefix + ".schedule" }

// ReleaseSubject returns the subject of release requests.
func (cfg Config) ReleaseSubject() string { return cfg.SubjectPrefix + ".release" }

// StatsSubject returns the subject of stats requests.
func (cfg Config) StatsSubject() string { return cfg.SubjectPrefix + ".stats" }

// JournalSubject returns the journal subject for category.
func (cfg Config) JournalSubject(category string) string {
	return cfg.SubjectPrefix + ".journal." + category
}

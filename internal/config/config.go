// Package config defines the tree-archiver configuration schema.
package config

import "time"

type Config struct {
	Jobs         []JobConfig   `yaml:"jobs"`
	Gate         GateConfig    `yaml:"gate"`
	Logging      LoggingConfig `yaml:"logging"`
	Sink         SinkConfig    `yaml:"sink"`
	ConfigReload ReloadConfig  `yaml:"configReload"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// JobConfig binds a named backup to its paths and strategy.
type JobConfig struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Strategy    string `yaml:"strategy"` // "full", "differential"
	Schedule    string `yaml:"schedule"` // standard cron expression, optional
}

type GateConfig struct {
	Priority     []string      `yaml:"priority"` // added to the built-in defaults
	Blocking     []string      `yaml:"blocking"`
	PollInterval time.Duration `yaml:"pollInterval"` // wait step while priority processes run
}

type LoggingConfig struct {
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `yaml:"format"` // "text", "json"
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type SinkConfig struct {
	Format       string `yaml:"format"` // "json", "xml", "memory"
	Path         string `yaml:"path"`
	LogTransfers bool   `yaml:"logTransfers"`
}

type ReloadConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Method         string        `yaml:"method"` // "auto", "poll", "fsnotify"
	PollInterval   time.Duration `yaml:"pollInterval"`
	DebounceWindow time.Duration `yaml:"debounceWindow"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. ":9110"; empty disables the endpoint
}

// Job returns the job with the given name.
func (c *Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

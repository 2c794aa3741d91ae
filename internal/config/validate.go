package config

import (
	"github.com/juju/errors"
	"github.com/robfig/cron/v3"
)

// Validate checks the schema constraints that yaml decoding cannot express.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Jobs))
	for i, j := range c.Jobs {
		if j.Name == "" {
			return errors.NotValidf("job #%d: empty name", i+1)
		}
		if seen[j.Name] {
			return errors.NotValidf("job %q: duplicate name", j.Name)
		}
		seen[j.Name] = true

		if j.Source == "" || j.Destination == "" {
			return errors.NotValidf("job %q: source and destination are required", j.Name)
		}
		switch j.Strategy {
		case "full", "differential":
		default:
			return errors.NotValidf("job %q: strategy %q", j.Name, j.Strategy)
		}
		if j.Schedule != "" {
			if _, err := cron.ParseStandard(j.Schedule); err != nil {
				return errors.NotValidf("job %q: schedule %q (%v)", j.Name, j.Schedule, err)
			}
		}
	}

	switch c.Sink.Format {
	case "memory":
	case "json", "xml":
		if c.Sink.Path == "" {
			return errors.NotValidf("sink: %s format requires a path", c.Sink.Format)
		}
	default:
		return errors.NotValidf("sink format %q", c.Sink.Format)
	}

	switch c.ConfigReload.Method {
	case "auto", "poll", "fsnotify":
	default:
		return errors.NotValidf("configReload method %q", c.ConfigReload.Method)
	}
	return nil
}

package config

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultGatePoll     = 30 * time.Second
	defaultReloadPoll   = 5 * time.Second
	defaultDebounce     = 500 * time.Millisecond
	defaultLogMaxSizeMB = 10
)

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := mapEnvKey(envPattern.FindStringSubmatch(m)[1])
		return os.Getenv(key)
	})
}

// Load reads, expands, decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading config file")
	}
	return Parse(data)
}

// Parse decodes raw YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Annotate(err, "unmarshalling yaml")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for i := range c.Jobs {
		if c.Jobs[i].Strategy == "" {
			c.Jobs[i].Strategy = "full"
		}
	}
	if c.Gate.PollInterval <= 0 {
		c.Gate.PollInterval = defaultGatePoll
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Sink.Format == "" {
		if c.Sink.Path == "" {
			c.Sink.Format = "memory"
		} else {
			c.Sink.Format = "json"
		}
	}
	if c.ConfigReload.Method == "" {
		c.ConfigReload.Method = "auto"
	}
	if c.ConfigReload.PollInterval <= 0 {
		c.ConfigReload.PollInterval = defaultReloadPoll
	}
	if c.ConfigReload.DebounceWindow <= 0 {
		c.ConfigReload.DebounceWindow = defaultDebounce
	}
}

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration for the agent demo.
//
//	log:
//	  folder: /tmp/agentapp
//	  prefix: agent
//	  max_lines: 200
//	  files_to_keep: 5
//	  compress: false
//	sweep:
//	  path: /tmp/agentapp
//	  extension: "*"
//	  max_age_seconds: 3600
//	  interval_seconds: 60
type Config struct {
	Log struct {
		Folder    string `yaml:"folder"`
		Prefix    string `yaml:"prefix"`
		MaxLines  int    `yaml:"max_lines"`
		FileCount int    `yaml:"files_to_keep"`
		Compress  bool   `yaml:"compress"`
	} `yaml:"log"`
	Sweep struct {
		Path            string `yaml:"path"`
		Extension       string `yaml:"extension"`
		MaxAgeSeconds   int    `yaml:"max_age_seconds"`
		IntervalSeconds int    `yaml:"interval_seconds"`
	} `yaml:"sweep"`
}

// LoadConfig reads a YAML config file, fills in defaults, and validates it.
// A missing file is not an error; you get the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Folder == "" {
		c.Log.Folder = "/tmp/agentapp"
	}

	if c.Log.Prefix == "" {
		c.Log.Prefix = "agent"
	}

	if c.Log.MaxLines == 0 {
		c.Log.MaxLines = 200
	}

	if c.Log.FileCount == 0 {
		c.Log.FileCount = 5
	}

	if c.Sweep.Path == "" {
		c.Sweep.Path = c.Log.Folder
	}

	if c.Sweep.Extension == "" {
		c.Sweep.Extension = "*"
	}

	if c.Sweep.MaxAgeSeconds == 0 {
		c.Sweep.MaxAgeSeconds = 3600
	}

	if c.Sweep.IntervalSeconds == 0 {
		c.Sweep.IntervalSeconds = 60
	}
}

func (c *Config) validate() error {
	if c.Log.MaxLines < 1 {
		return fmt.Errorf("log.max_lines must be positive, got %d", c.Log.MaxLines)
	}

	if c.Log.FileCount < 1 {
		return fmt.Errorf("log.files_to_keep must be positive, got %d", c.Log.FileCount)
	}

	if c.Sweep.MaxAgeSeconds < 1 {
		return fmt.Errorf("sweep.max_age_seconds must be positive, got %d", c.Sweep.MaxAgeSeconds)
	}

	if c.Sweep.IntervalSeconds < 1 {
		return fmt.Errorf("sweep.interval_seconds must be positive, got %d", c.Sweep.IntervalSeconds)
	}

	return nil
}

// MaxAge returns the sweep age threshold as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Sweep.MaxAgeSeconds) * time.Second
}

// Interval returns the sweep interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Sweep.IntervalSeconds) * time.Second
}

// Package config loads the sentrywin-edge binary's YAML configuration
// through an applyDefaults/validate pair.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/windowkeep/sentrywin/internal/adapters/opcuasignal"
	"github.com/windowkeep/sentrywin/internal/engine"
)

type Config struct {
	Engine     EngineConfig       `yaml:"engine"`
	Backoff    engine.BackoffPolicy `yaml:"backoff"`
	Matcher    MatcherConfig      `yaml:"matcher"`
	Advancer   AdvancerConfig     `yaml:"advancer"`
	Bus        BusConfig          `yaml:"bus"`
	EventLog   EventLogConfig     `yaml:"eventlog"`
	ResultSink ResultSinkConfig   `yaml:"resultsink"`
	Metrics    MetricsConfig      `yaml:"metrics"`
	OPCUA      OPCUAConfig        `yaml:"opcua"`
}

type EngineConfig struct {
	Frequency              time.Duration `yaml:"frequency"`
	TickInterval           time.Duration `yaml:"tick_interval"`
	InitialProcessingDelay time.Duration `yaml:"initial_processing_delay"`
	ResumeProcessingDelay  time.Duration `yaml:"resume_processing_delay"`
	AskTimeout             time.Duration `yaml:"ask_timeout"`
}

type MatcherConfig struct {
	Threshold int    `yaml:"threshold"`
	AlertName string `yaml:"alert_name"`
}

type AdvancerConfig struct {
	MaxSignals int `yaml:"max_signals"`
}

type BusConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type EventLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type ResultSinkConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// OPCUAConfig wraps opcuasignal.Config with an Enabled switch: the
// collector is an optional ingestion source, not a core engine
// dependency.
type OPCUAConfig struct {
	Enabled bool `yaml:"enabled"`
	opcuasignal.Config
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.Frequency <= 0 {
		c.Engine.Frequency = 10 * time.Second
	}
	if c.Engine.TickInterval <= 0 {
		c.Engine.TickInterval = time.Second
	}
	if c.Engine.InitialProcessingDelay <= 0 {
		c.Engine.InitialProcessingDelay = 30 * time.Second
	}
	if c.Engine.ResumeProcessingDelay <= 0 {
		c.Engine.ResumeProcessingDelay = 200 * time.Millisecond
	}
	if c.Engine.AskTimeout <= 0 {
		c.Engine.AskTimeout = 3 * time.Second
	}
	c.Backoff.ApplyDefaults()
	if c.Matcher.Threshold <= 0 {
		c.Matcher.Threshold = 3
	}
	if c.Matcher.AlertName == "" {
		c.Matcher.AlertName = "health.window.alert"
	}
	if c.Bus.Subject == "" {
		c.Bus.Subject = "sentrywin.signals"
	}
	if c.EventLog.Dir == "" {
		c.EventLog.Dir = "./data/eventlog"
	}
	if c.ResultSink.Table == "" {
		c.ResultSink.Table = "window_matches"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.OPCUA.Enabled {
		c.OPCUA.Config.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if err := c.Backoff.Validate(); err != nil {
		return err
	}
	if c.Bus.Enabled && c.Bus.URL == "" {
		return fmt.Errorf("bus.url is required when bus.enabled is true")
	}
	if c.ResultSink.Enabled && c.ResultSink.ConnString == "" {
		return fmt.Errorf("resultsink.conn_string is required when resultsink.enabled is true")
	}
	if c.OPCUA.Enabled {
		if err := c.OPCUA.Config.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}

package sentrywin

import "github.com/windowkeep/sentrywin/internal/app/config"

type (
	Config           = config.Config
	EngineConfig     = config.EngineConfig
	MatcherConfig    = config.MatcherConfig
	AdvancerConfig   = config.AdvancerConfig
	BusConfig        = config.BusConfig
	EventLogConfig   = config.EventLogConfig
	ResultSinkConfig = config.ResultSinkConfig
	MetricsConfig    = config.MetricsConfig
	OPCUAConfig      = config.OPCUAConfig
)

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

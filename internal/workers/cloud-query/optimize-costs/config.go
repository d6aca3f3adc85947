// internal/workers/cloud-query/optimize-costs/config.go
package optimizecosts

import (
	"fmt"
	"time"

	"cloudwise/internal/common/config"
)

// ConfigKey names this worker under `workers:` in config.yaml.
const ConfigKey = "optimize-cloud-costs"

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// DefaultPlatform is used when a job carries no platform variable.
	DefaultPlatform string `mapstructure:"default_platform"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 2,
		Timeout:       120 * time.Second,

		DefaultPlatform: "all",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	switch c.DefaultPlatform {
	case "all", "aws", "azure":
	default:
		return fmt.Errorf("default_platform must be one of all, aws, azure")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if workerCfg, exists := appConfig.Workers[ConfigKey]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = config.GetDuration(workerCfg.Timeout)
		}
	}
	return cfg
}

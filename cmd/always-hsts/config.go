package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
// Values are read from the config file, then from ALWAYS_HSTS_* environment
// variables, then from command line flags, each overriding the previous.
type Config struct {
	Port               int           `yaml:"port" envconfig:"PORT"`
	DB                 string        `yaml:"db" envconfig:"DB"`
	Preload            string        `yaml:"preload" envconfig:"PRELOAD"`
	DisablePreloadList bool          `yaml:"disablePreloadList" envconfig:"DISABLE_PRELOAD_LIST"`
	PreloadTimeOffset  time.Duration `yaml:"preloadTimeOffset" envconfig:"PRELOAD_TIME_OFFSET"`
	SweepInterval      time.Duration `yaml:"sweepInterval" envconfig:"SWEEP_INTERVAL"`
	LogFile            string        `yaml:"logFile" envconfig:"LOG_FILE"`
}

func defaultConfig() Config {
	return Config{
		Port:          8080,
		DB:            "hsts.db",
		SweepInterval: time.Minute,
	}
}

// getConfig reads the config file, if any, on top of the defaults
// and applies environment overrides.
func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, fmt.Errorf("Could not parse config file %s: %w", filename, err)
		}
	}
	if err := envconfig.Process("always_hsts", &config); err != nil {
		return config, fmt.Errorf("Could not read environment: %w", err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("Invalid port %d", c.Port)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("Invalid sweep interval %s", c.SweepInterval)
	}
	return nil
}

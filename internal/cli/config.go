package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

// Config is the CLI configuration file.
//
//	logger:
//	  level: debug
//	  service_name: flexquery
//	render:
//	  primary_key: uuid
type Config struct {
	Logger logger.Config `yaml:"logger"`
	Render RenderConfig  `yaml:"render"`
}

// RenderConfig holds defaults of the render command.
type RenderConfig struct {
	// PrimaryKey is the column "pk" lookups resolve to. Defaults to "id".
	PrimaryKey string `yaml:"primary_key"`
}

func defaultConfig() *Config {
	return &Config{
		Logger: logger.Config{Level: logger.Warning, ServiceName: "flexquery"},
		Render: RenderConfig{PrimaryKey: "id"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Render.PrimaryKey == "" {
		cfg.Render.PrimaryKey = "id"
	}
	return cfg, nil
}

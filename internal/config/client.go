package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the terminal client configuration.
type ClientConfig struct {
	APIURL   string        `yaml:"api_url"`
	LogFile  string        `yaml:"log_file"`
	LogLevel string        `yaml:"log_level"`
	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// LoadClient reads the optional YAML file named by TODO_CLIENT_CONFIG and
// then applies environment overrides.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIURL:   "http://localhost:3001/api",
		LogFile:  "todo-client.log",
		LogLevel: "info",
	}

	if path := os.Getenv("TODO_CLIENT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.APIURL = getEnv("TODO_API_URL", cfg.APIURL)
	cfg.LogFile = getEnv("TODO_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = getEnv("TODO_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("TODO_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TODO_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}

	if cfg.APIURL == "" {
		return nil, errors.New("api url is empty")
	}
	return cfg, nil
}

func (c *ClientConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read client config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse client config %s: %w", path, err)
	}
	return nil
}

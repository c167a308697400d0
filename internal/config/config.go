package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      LogConfig      `yaml:"log"`
	Sim      SimConfig      `yaml:"sim"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
	SendBuffer     int      `yaml:"send_buffer"`
}

type AuthConfig struct {
	AttachFailureDelay time.Duration `yaml:"attach_failure_delay"`
}

type NotifierConfig struct {
	MaxFilterResults int `yaml:"max_filter_results"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

type SimConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file or field is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			Host:       "0.0.0.0",
			SendBuffer: 64,
		},
		Auth: AuthConfig{
			AttachFailureDelay: 2 * time.Second,
		},
		Notifier: NotifierConfig{
			MaxFilterResults: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Sim: SimConfig{
			Interval: time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

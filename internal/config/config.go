package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken   string `yaml:"slack_bot_token"`
	SlackAppToken   string `yaml:"slack_app_token"`
	DevLakeURL      string `yaml:"devlake_url"`
	DevLakeAPIToken string `yaml:"devlake_api_token"`
	// DashboardURL is the URL included in success messages. Defaults to
	// DevLakeURL when unset.
	DashboardURL    string `yaml:"dashboard_url"`
	TemporalAddress string `yaml:"temporal_address"`
	HTTPListenAddr  string `yaml:"http_listen_addr"`
	LogLevel        string `yaml:"log_level"`
	// InstanceID distinguishes bot replicas; it is part of the Temporal task
	// queue name so activities always run in the process that accepted the
	// submission. Defaults to a random UUID.
	InstanceID string `yaml:"instance_id"`
}

// Load builds the configuration from an optional YAML file (BOT_CONFIG_FILE)
// with environment variables taking precedence, then applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TemporalAddress: "localhost:7233",
		HTTPListenAddr:  ":8090",
		LogLevel:        "info",
	}

	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	applyEnv(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	applyEnv(&cfg.DevLakeURL, "DEVLAKE_URL")
	applyEnv(&cfg.DevLakeAPIToken, "DEVLAKE_API_TOKEN")
	applyEnv(&cfg.DashboardURL, "DASHBOARD_URL")
	applyEnv(&cfg.TemporalAddress, "TEMPORAL_ADDRESS")
	applyEnv(&cfg.HTTPListenAddr, "HTTP_LISTEN_ADDR")
	applyEnv(&cfg.LogLevel, "LOG_LEVEL")
	applyEnv(&cfg.InstanceID, "INSTANCE_ID")

	cfg.DevLakeURL = strings.TrimRight(cfg.DevLakeURL, "/")
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = cfg.DevLakeURL
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if c.SlackAppToken == "" {
		return fmt.Errorf("SLACK_APP_TOKEN is required")
	}
	if c.DevLakeURL == "" {
		return fmt.Errorf("DEVLAKE_URL is required")
	}
	return nil
}

// TaskQueue returns the per-instance Temporal task queue name.
func (c *Config) TaskQueue() string {
	return "devlake-bot-" + c.InstanceID
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"`
		Database string `json:"database"`
	} `json:"mongodb"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	Session struct {
		TokenSecret string `json:"tokenSecret"`
	} `json:"session"`
	Game struct {
		DisconnectGraceSeconds int   `json:"disconnectGraceSeconds"`
		AllowPromotionCancel   *bool `json:"allowPromotionCancel"`
		BotMoveDelayMs         int   `json:"botMoveDelayMs"`
	} `json:"game"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Replace environment variables in the config
	configStr := string(data)
	configStr = expandEnvVars(configStr)

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8765
	}
	if c.Game.DisconnectGraceSeconds == 0 {
		c.Game.DisconnectGraceSeconds = 40
	}
	if c.Game.BotMoveDelayMs == 0 {
		c.Game.BotMoveDelayMs = 1500
	}
}

// PromotionCancelAllowed reports the promotion-cancel deployment policy.
// Enabled unless the config explicitly turns it off.
func (c *Config) PromotionCancelAllowed() bool {
	return c.Game.AllowPromotionCancel == nil || *c.Game.AllowPromotionCancel
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("CHESS_ENV")
	if env == "" {
		return "dev"
	}
	return env
}

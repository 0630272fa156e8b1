package main

import (
	"fmt"
	"os"
	"time"

	"autograder/internal/common/cache"
	"autograder/internal/runner/config"
	"autograder/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRateWindow      = time.Minute
	defaultRedisTimeout    = 2 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// RunnerConfig holds execution pool settings.
type RunnerConfig struct {
	WorkRoot      string        `yaml:"workRoot"`
	PoolSize      int           `yaml:"poolSize"`
	SlotWait      time.Duration `yaml:"slotWait"`
	MaxSourceSize int           `yaml:"maxSourceSize"`
}

// EngineConfig holds sandbox engine settings.
type EngineConfig struct {
	MaxCaptureBytes int `yaml:"maxCaptureBytes"`
}

// RateLimitConfig holds per-student submission rate limiting settings.
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Window       time.Duration `yaml:"window"`
	StudentMax   int           `yaml:"studentMax"`
	RedisTimeout time.Duration `yaml:"redisTimeout"`
}

// PoliciesConfig holds execution policy definitions.
type PoliciesConfig struct {
	Defaults    config.PolicyConfig   `yaml:"defaults"`
	Assignments []config.PolicyConfig `yaml:"assignments"`
}

// AppConfig holds runner-service config.
type AppConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Logger    logger.Config     `yaml:"logger"`
	Redis     cache.RedisConfig `yaml:"redis"`
	Runner    RunnerConfig      `yaml:"runner"`
	Engine    EngineConfig      `yaml:"engine"`
	RateLimit RateLimitConfig   `yaml:"rateLimit"`
	Policies  PoliciesConfig    `yaml:"policies"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = defaultRateWindow
	}
	if cfg.RateLimit.RedisTimeout <= 0 {
		cfg.RateLimit.RedisTimeout = defaultRedisTimeout
	}
}

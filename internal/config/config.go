package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"habitreminder/pkg/config"
)

const (
	HookPolicyBestEffort = "best_effort"
	HookPolicyPropagate  = "propagate"
)

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Log       LogConfig           `yaml:"log"`
	Telegram  TelegramConfig      `yaml:"telegram"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
	Delivery  DeliveryConfig      `yaml:"delivery"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// TelegramConfig Bot API 配置
type TelegramConfig struct {
	URL     string        `yaml:"url"` // e.g. https://api.telegram.org/bot
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// SchedulerConfig 提醒调度配置
type SchedulerConfig struct {
	Timezone     string        `yaml:"timezone"`
	SyncInterval time.Duration `yaml:"sync_interval"`
	HookPolicy   string        `yaml:"hook_policy"`
	OpsAddr      string        `yaml:"ops_addr"` // health and metrics
}

// DeliveryConfig 提醒投递配置
type DeliveryConfig struct {
	RetryMax int64         `yaml:"retry_max"`
	RetryTTL time.Duration `yaml:"retry_ttl"`
	DedupTTL time.Duration `yaml:"dedup_ttl"`
	Prefetch int           `yaml:"prefetch"`
	OpsAddr  string        `yaml:"ops_addr"`
}

// Location resolves the scheduler timezone; empty means UTC.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Load reads config/<CONFIG_ENV>.yaml layered over config/base.yaml, then applies env overrides.
func Load() (*Config, error) {
	dir := config.GetEnv("CONFIG_DIR", "config")

	var cfg Config
	if err := config.Decode(config.GetConfigEnv(), dir, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	overrideFromEnv(&cfg)

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if url := os.Getenv("TELEGRAM_URL"); url != "" {
		cfg.Telegram.URL = url
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if tz := os.Getenv("SCHEDULER_TIMEZONE"); tz != "" {
		cfg.Scheduler.Timezone = tz
	}
	if policy := os.Getenv("SCHEDULER_HOOK_POLICY"); policy != "" {
		cfg.Scheduler.HookPolicy = policy
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if n := os.Getenv("DELIVERY_RETRY_MAX"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			cfg.Delivery.RetryMax = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = 5 * time.Minute
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = 24 * time.Hour
	}
	if cfg.Telegram.URL == "" {
		cfg.Telegram.URL = "https://api.telegram.org/bot"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
	}
	if cfg.Scheduler.SyncInterval == 0 {
		cfg.Scheduler.SyncInterval = 15 * time.Second
	}
	if cfg.Scheduler.HookPolicy == "" {
		cfg.Scheduler.HookPolicy = HookPolicyBestEffort
	}
	if cfg.Scheduler.OpsAddr == "" {
		cfg.Scheduler.OpsAddr = ":9092"
	}
	if cfg.Delivery.OpsAddr == "" {
		cfg.Delivery.OpsAddr = ":9091"
	}
	if cfg.Delivery.Prefetch == 0 {
		cfg.Delivery.Prefetch = 10
	}
	if cfg.Delivery.RetryMax == 0 {
		cfg.Delivery.RetryMax = 3
	}
	if cfg.Delivery.RetryTTL == 0 {
		cfg.Delivery.RetryTTL = time.Hour
	}
	if cfg.Delivery.DedupTTL == 0 {
		cfg.Delivery.DedupTTL = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	switch c.Scheduler.HookPolicy {
	case HookPolicyBestEffort, HookPolicyPropagate:
	default:
		return fmt.Errorf("unknown scheduler.hook_policy %q", c.Scheduler.HookPolicy)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("invalid scheduler.timezone: %w", err)
	}
	return nil
}

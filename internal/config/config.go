// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Workers      int           `yaml:"workers"` // background worker pool size
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type GatewayConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APISecret string        `yaml:"api_secret"`
	StoreID   string        `yaml:"store_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MembershipConfig carries the tier thresholds and accrual rates. Thresholds
// are inclusive upper bounds on cumulative paid amount.
type MembershipConfig struct {
	NormalCeiling int64   `yaml:"normal_ceiling"`
	VIPCeiling    int64   `yaml:"vip_ceiling"`
	NormalRate    float64 `yaml:"normal_rate"`
	VIPRate       float64 `yaml:"vip_rate"`
	VVIPRate      float64 `yaml:"vvip_rate"`
}

type SchedulerConfig struct {
	BillingInterval   time.Duration `yaml:"billing_interval"`
	TrialInterval     time.Duration `yaml:"trial_interval"`
	ScheduleInterval  time.Duration `yaml:"schedule_interval"`
	AbandonedInterval time.Duration `yaml:"abandoned_interval"`
	AbandonedAfter    time.Duration `yaml:"abandoned_after"`
	BatchSize         int           `yaml:"batch_size"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Admin      AdminConfig      `yaml:"admin"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Membership MembershipConfig `yaml:"membership"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Security   SecurityConfig   `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Gateway.APISecret == "" {
		return nil, errors.New("gateway.api_secret is required")
	}
	if len(cfg.Security.EncryptionKey) != 32 {
		return nil, errors.New("security.encryption_key must be 32 bytes")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = time.Hour
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 10 * time.Minute
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.portone.io"
	}
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = 10 * time.Second
	}
	if cfg.Membership.NormalCeiling <= 0 {
		cfg.Membership.NormalCeiling = 50000
	}
	if cfg.Membership.VIPCeiling <= 0 {
		cfg.Membership.VIPCeiling = 100000
	}
	if cfg.Membership.NormalRate <= 0 {
		cfg.Membership.NormalRate = 0.01
	}
	if cfg.Membership.VIPRate <= 0 {
		cfg.Membership.VIPRate = 0.05
	}
	if cfg.Membership.VVIPRate <= 0 {
		cfg.Membership.VVIPRate = 0.10
	}
	if cfg.Scheduler.BillingInterval <= 0 {
		cfg.Scheduler.BillingInterval = 24 * time.Hour
	}
	if cfg.Scheduler.TrialInterval <= 0 {
		cfg.Scheduler.TrialInterval = time.Hour
	}
	if cfg.Scheduler.ScheduleInterval <= 0 {
		cfg.Scheduler.ScheduleInterval = 10 * time.Minute
	}
	if cfg.Scheduler.AbandonedInterval <= 0 {
		cfg.Scheduler.AbandonedInterval = time.Hour
	}
	if cfg.Scheduler.AbandonedAfter <= 0 {
		cfg.Scheduler.AbandonedAfter = 24 * time.Hour
	}
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 100
	}
}

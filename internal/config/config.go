package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type RazorpayConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
}

// TierConfig binds one price point to the resources it unlocks on its own.
// Effective entitlement for tier n is the union of resources for tiers 1..n.
type TierConfig struct {
	Tier      int      `yaml:"tier"`
	Price     int64    `yaml:"price"` // smallest currency unit, exact match only
	Resources []string `yaml:"resources"`
}

type DriveConfig struct {
	ServiceAccountFile string        `yaml:"service_account_file"`
	Timeout            time.Duration `yaml:"timeout"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Razorpay RazorpayConfig `yaml:"razorpay"`
	Tiers    []TierConfig   `yaml:"tiers"`
	Drive    DriveConfig    `yaml:"drive"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Env values win over file values for secrets and connection strings so a
	// .env / deployment environment can carry them.
	if v := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); v != "" {
		cfg.Razorpay.WebhookSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Drive.Timeout <= 0 {
		cfg.Drive.Timeout = 15 * time.Second
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Razorpay.WebhookSecret == "" {
		return nil, errors.New("razorpay.webhook_secret is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if len(cfg.Tiers) == 0 {
		return nil, errors.New("at least one tier must be configured")
	}
	sort.Slice(cfg.Tiers, func(i, j int) bool { return cfg.Tiers[i].Tier < cfg.Tiers[j].Tier })
	seenPrice := make(map[int64]int, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		if t.Tier <= 0 {
			return nil, fmt.Errorf("tiers: tier number must be positive, got %d", t.Tier)
		}
		if t.Price <= 0 {
			return nil, fmt.Errorf("tiers: price for tier %d must be positive", t.Tier)
		}
		if prev, dup := seenPrice[t.Price]; dup {
			return nil, fmt.Errorf("tiers: price %d is shared by tiers %d and %d", t.Price, prev, t.Tier)
		}
		seenPrice[t.Price] = t.Tier
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

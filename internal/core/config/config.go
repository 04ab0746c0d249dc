package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config represents the top-level application config.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Saga       SagaConfig       `koanf:"saga"`
	Compliance ComplianceConfig `koanf:"compliance"`
	Custodian  CustodianConfig  `koanf:"custodian"`
	Seed       SeedConfig       `koanf:"seed"`
	Monitor    MonitorConfig    `koanf:"monitor"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // memory | postgres
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type SagaConfig struct {
	StepTimeout string `koanf:"step_timeout"` // "0" disables
	MaxParallel int    `koanf:"max_parallel"`
}

type ComplianceConfig struct {
	BlockedAccounts []string `koanf:"blocked_accounts"`
	MaxSingleAmount string   `koanf:"max_single_amount"` // empty or "0" disables the limit
}

type CustodianConfig struct {
	Latency          string `koanf:"latency"`
	MinConfirmations int    `koanf:"min_confirmations"`
}

type SeedConfig struct {
	Dir string `koanf:"dir"` // empty disables seeding
}

type MonitorConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Interval   string `koanf:"interval"`
	StallAfter string `koanf:"stall_after"`
	BatchSize  int    `koanf:"batch_size"`
}

func (c SagaConfig) StepTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StepTimeout)
	return d
}

func (c ComplianceConfig) MaxSingle() decimal.Decimal {
	if strings.TrimSpace(c.MaxSingleAmount) == "" {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(c.MaxSingleAmount)
	return d
}

func (c CustodianConfig) LatencyDuration() time.Duration {
	d, _ := time.ParseDuration(c.Latency)
	return d
}

func (c MonitorConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c MonitorConfig) StallAfterDuration() time.Duration {
	d, _ := time.ParseDuration(c.StallAfter)
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported database.type %q (must be memory or postgres)", c.Database.Type)
	}

	if err := nonNegativeDuration("saga.step_timeout", c.Saga.StepTimeout); err != nil {
		return err
	}
	if c.Saga.MaxParallel <= 0 {
		return fmt.Errorf("saga.max_parallel must be > 0")
	}

	if s := strings.TrimSpace(c.Compliance.MaxSingleAmount); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid compliance.max_single_amount %q: %w", s, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("compliance.max_single_amount must be >= 0")
		}
	}

	if err := nonNegativeDuration("custodian.latency", c.Custodian.Latency); err != nil {
		return err
	}
	if c.Custodian.MinConfirmations < 0 {
		return fmt.Errorf("custodian.min_confirmations must be >= 0")
	}

	if c.Seed.Dir != "" {
		if _, err := os.Stat(c.Seed.Dir); err != nil {
			return fmt.Errorf("seed.dir %q is not accessible: %w", c.Seed.Dir, err)
		}
	}

	if c.Monitor.Enabled {
		for name, value := range map[string]string{
			"monitor.interval":    c.Monitor.Interval,
			"monitor.stall_after": c.Monitor.StallAfter,
		} {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, value, err)
			}
			if d <= 0 {
				return fmt.Errorf("%s must be > 0", name)
			}
		}
		if c.Monitor.BatchSize <= 0 {
			return fmt.Errorf("monitor.batch_size must be > 0")
		}
	}

	return nil
}

func nonNegativeDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be >= 0", name)
	}
	return nil
}

// Load parses config from defaults, an optional YAML file and LEDGER_ env vars,
// then validates it. Nested keys use "__" in env names (LEDGER_SAGA__STEP_TIMEOUT).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                  8080,
		"server.host":                  "0.0.0.0",
		"server.max_body_size_mb":      1,
		"server.mode":                  "release",
		"database.type":                "memory",
		"database.dsn":                 "",
		"database.max_open_conns":      25,
		"database.max_idle_conns":      25,
		"database.auto_migrate":        true,
		"saga.step_timeout":            "30s",
		"saga.max_parallel":            8,
		"compliance.blocked_accounts":  []string{},
		"compliance.max_single_amount": "",
		"custodian.latency":            "0s",
		"custodian.min_confirmations":  1,
		"seed.dir":                     "",
		"monitor.enabled":              true,
		"monitor.interval":             "30s",
		"monitor.stall_after":          "5m",
		"monitor.batch_size":           1000,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("LEDGER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LEDGER_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

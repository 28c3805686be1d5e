package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/simaogato/finops-backend/internal/usecase/cadence"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite3"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Dispatch drivers
const (
	DispatchLog  = "log"
	DispatchNATS = "nats"
)

// EnvPrefix is the prefix of every environment override, e.g. FINOPS_STORE_DRIVER
const EnvPrefix = "FINOPS"

// Config is the full service configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Aging    AgingConfig    `mapstructure:"aging"`
	Cadence  CadenceConfig  `mapstructure:"cadence"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	APIToken        string        `mapstructure:"api_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects where records, rules and reminder history live.
// With the redis driver, records and rules stay in memory and only the reminder history is shared.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

type DispatchConfig struct {
	Driver           string `mapstructure:"driver"`
	NATSURL          string `mapstructure:"nats_url"`
	SubjectPrefix    string `mapstructure:"subject_prefix"`
	ConfirmOnHandOff bool   `mapstructure:"confirm_on_hand_off"`
}

type AgingConfig struct {
	Boundaries []int `mapstructure:"boundaries"`
}

type CadenceConfig struct {
	FirstReminderOffset time.Duration `mapstructure:"first_reminder_offset"`
	FollowUpInterval    time.Duration `mapstructure:"follow_up_interval"`
	MaxAttempts         int           `mapstructure:"max_attempts"`
	EscalationAfterDays int           `mapstructure:"escalation_after_days"`
	DefaultChannel      string        `mapstructure:"default_channel"`
	HandOffTimeout      time.Duration `mapstructure:"hand_off_timeout"`
	Interval            time.Duration `mapstructure:"interval"` // How often serve runs a cycle, 0 disables
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SeedConfig struct {
	Demo bool `mapstructure:"demo"`
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	policy := cadence.DefaultPolicy()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.api_token", "dev-token")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "finops")

	v.SetDefault("dispatch.driver", DispatchLog)
	v.SetDefault("dispatch.nats_url", "nats://localhost:4222")
	v.SetDefault("dispatch.subject_prefix", "reminders")
	v.SetDefault("dispatch.confirm_on_hand_off", false)

	v.SetDefault("aging.boundaries", []int(domain.DefaultBoundaries()))

	v.SetDefault("cadence.first_reminder_offset", policy.FirstReminderOffset)
	v.SetDefault("cadence.follow_up_interval", policy.FollowUpInterval)
	v.SetDefault("cadence.max_attempts", policy.MaxAttempts)
	v.SetDefault("cadence.escalation_after_days", policy.EscalationAfterDays)
	v.SetDefault("cadence.default_channel", string(policy.DefaultChannel))
	v.SetDefault("cadence.hand_off_timeout", policy.HandOffTimeout)
	v.SetDefault("cadence.interval", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("seed.demo", false)
}

// BindEnv makes every key overridable from FINOPS_* environment variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
// The caller is expected to have read any config file into v already.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if err := c.Boundaries().Validate(); err != nil {
		return err
	}

	if err := c.Policy().Validate(); err != nil {
		return err
	}

	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return &domain.ConfigurationError{Subject: "store", Reason: "dsn is required for " + c.Store.Driver}
		}
	default:
		return &domain.ConfigurationError{Subject: "store", Reason: "unknown driver " + c.Store.Driver}
	}

	switch c.Dispatch.Driver {
	case DispatchLog, DispatchNATS:
	default:
		return &domain.ConfigurationError{Subject: "dispatch", Reason: "unknown driver " + c.Dispatch.Driver}
	}

	return nil
}

// Boundaries returns the configured aging bucket boundaries
func (c *Config) Boundaries() domain.Boundaries {
	return domain.Boundaries(c.Aging.Boundaries)
}

// Policy returns the configured reminder cadence
func (c *Config) Policy() cadence.Policy {
	return cadence.Policy{
		FirstReminderOffset: c.Cadence.FirstReminderOffset,
		FollowUpInterval:    c.Cadence.FollowUpInterval,
		MaxAttempts:         c.Cadence.MaxAttempts,
		EscalationAfterDays: c.Cadence.EscalationAfterDays,
		DefaultChannel:      domain.Channel(c.Cadence.DefaultChannel),
		HandOffTimeout:      c.Cadence.HandOffTimeout,
	}
}

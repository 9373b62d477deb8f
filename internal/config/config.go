// Package config defines the configuration structures for MallLedger.  No I/O
// or parsing lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/MallLedger/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MallLedger/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`

	// TriggerRate and TriggerBurst bound the batch trigger endpoints per
	// client.  A zero rate disables the limiter.
	TriggerRate  float64 `mapstructure:"trigger_rate"`
	TriggerBurst int     `mapstructure:"trigger_burst"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // "pgx" | "postgres"
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrationPath    string        `mapstructure:"migration_path"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	UnreadCountTTL time.Duration `mapstructure:"unread_count_ttl"`
}

// KafkaConfig holds Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	GroupID  string   `mapstructure:"group_id"`
	ClientID string   `mapstructure:"client_id"`

	// SASLMechanism is empty, PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// BillingConfig holds invoice generation policy.
type BillingConfig struct {
	// GraceDays is added to the issue date to obtain the due date.
	GraceDays int `mapstructure:"grace_days"`
}

// SchedulerConfig drives the worker's periodic runs.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ScanInterval is the period between notification scan passes.
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	// BillingDay is the day of month on which the monthly batch runs.
	BillingDay int `mapstructure:"billing_day"`
	// LockTTL bounds how long one worker may hold a batch mutex.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// HealthPort serves /healthz and /metrics for the worker process.
	HealthPort int `mapstructure:"health_port"`
}

// ChannelConfig describes one outbound messaging provider.
type ChannelConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIURL   string        `mapstructure:"api_url"`
	APIKey   string        `mapstructure:"api_key"`
	SenderID string        `mapstructure:"sender_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
}

// SeverityThresholds are the magnitudes at which a finding becomes Warning
// and Critical.  Whether a larger or smaller magnitude is worse depends on
// the domain.  A zero Critical disables the Critical tier.
type SeverityThresholds struct {
	WarningAt  int `mapstructure:"warning_at"`
	CriticalAt int `mapstructure:"critical_at"`
}

// ChannelPolicy says which channels a severity fans out to.
type ChannelPolicy struct {
	SendWhatsApp bool `mapstructure:"send_whatsapp"`
	SendSMS      bool `mapstructure:"send_sms"`
	NotifyAdmin  bool `mapstructure:"notify_admin"`
}

// NotificationsConfig is the raw notification policy as read from file and
// environment.  ResolvePolicy turns it into the typed Policy.
type NotificationsConfig struct {
	Thresholds    map[string]SeverityThresholds `mapstructure:"thresholds"`
	Channels      map[string]ChannelPolicy      `mapstructure:"channels"`
	RetentionDays map[string]int                `mapstructure:"retention_days"`
	AdminPhones   []string                      `mapstructure:"admin_phones"`
	DefaultRegion string                        `mapstructure:"default_region"`
	DispatchMode  string                        `mapstructure:"dispatch_mode"` // "inline" | "queued"
	WhatsApp      ChannelConfig                 `mapstructure:"whatsapp"`
	SMS           ChannelConfig                 `mapstructure:"sms"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Log           logging.LogConfig   `mapstructure:"log"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config.  Missing keys
// that the process cannot run without are reported as CFG_001 so that
// startup fails with the offending key named.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("config: database.driver %q is invalid; expected pgx|postgres", c.Database.Driver)
	}
	if c.Database.Host == "" {
		return errors.ConfigurationMissing("database.host")
	}
	if c.Database.User == "" {
		return errors.ConfigurationMissing("database.user")
	}
	if c.Database.DBName == "" {
		return errors.ConfigurationMissing("database.db_name")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.ConfigurationMissing("redis.addr")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.ConfigurationMissing("kafka.brokers")
	}
	switch c.Kafka.SASLMechanism {
	case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
	default:
		return fmt.Errorf("config: kafka.sasl_mechanism %q is invalid; expected PLAIN|SCRAM-SHA-256|SCRAM-SHA-512", c.Kafka.SASLMechanism)
	}

	if c.Billing.GraceDays < 0 {
		return fmt.Errorf("config: billing.grace_days must be >= 0, got %d", c.Billing.GraceDays)
	}

	if c.Scheduler.BillingDay < 1 || c.Scheduler.BillingDay > 28 {
		return fmt.Errorf("config: scheduler.billing_day %d is out of range [1, 28]", c.Scheduler.BillingDay)
	}

	n := c.Notifications
	if n.WhatsApp.Enabled && n.WhatsApp.APIURL == "" {
		return errors.ConfigurationMissing("notifications.whatsapp.api_url")
	}
	if n.SMS.Enabled && n.SMS.APIURL == "" {
		return errors.ConfigurationMissing("notifications.sms.api_url")
	}
	switch n.DispatchMode {
	case DispatchInline:
	case DispatchQueued:
		if !c.Kafka.Enabled {
			return fmt.Errorf("config: notifications.dispatch_mode %q requires kafka.enabled", n.DispatchMode)
		}
	default:
		return fmt.Errorf("config: notifications.dispatch_mode %q is invalid; expected inline|queued", n.DispatchMode)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	_, err := ResolvePolicy(n)
	return err
}

//Personal.AI order the ending

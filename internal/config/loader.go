package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "MALL"

// newViper builds a Viper instance with YAML file type, the MALL_ env prefix,
// automatic env binding and a "." → "_" key replacer, so "database.host"
// resolves to MALL_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers the scalar keys that must be overridable from the
// environment even when absent from the file.  AutomaticEnv alone only
// affects keys viper already knows about.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port",
		"database.driver", "database.host", "database.port", "database.user",
		"database.password", "database.db_name", "database.ssl_mode", "database.auto_migrate",
		"redis.enabled", "redis.addr", "redis.password", "redis.db",
		"kafka.enabled", "kafka.brokers", "kafka.group_id",
		"kafka.sasl_mechanism", "kafka.sasl_username", "kafka.sasl_password",
		"metrics.enabled",
		"billing.grace_days",
		"scheduler.enabled", "scheduler.scan_interval", "scheduler.billing_day",
		"notifications.dispatch_mode", "notifications.default_region",
		"notifications.whatsapp.enabled", "notifications.whatsapp.api_url", "notifications.whatsapp.api_key",
		"notifications.sms.enabled", "notifications.sms.api_url", "notifications.sms.api_key", "notifications.sms.sender_id",
		"log.level", "log.format",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges MALL_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from MALL_* environment variables and defaults
// alone.
//
//	MALL_<SECTION>_<FIELD>   e.g.  MALL_DATABASE_HOST, MALL_NOTIFICATIONS_SMS_API_URL
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads configPath when set and falls back to LoadFromEnv.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and hands the new
// Config to onChange.  A change that fails to parse or validate is reported
// to onError, when set, and the previous configuration stays in effect.
// Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps Load and panics on error.  For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending

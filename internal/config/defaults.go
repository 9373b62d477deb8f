// Package config provides configuration loading, defaults, and validation for
// MallLedger.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultSlowThreshold   = 2 * time.Second
	DefaultTriggerBurst    = 5

	DefaultDBDriver         = "pgx"
	DefaultDBHost           = "localhost"
	DefaultDBPort           = 5432
	DefaultDBName           = "mallledger"
	DefaultDBMaxOpenConns   = 25
	DefaultDBMaxIdleConns   = 10
	DefaultDBConnLifetime   = 30 * time.Minute
	DefaultStatementTimeout = 30 * time.Second
	DefaultMigrationPath    = "migrations"

	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisPoolSize   = 10
	DefaultRedisKeyPrefix  = "mallledger:"
	DefaultUnreadCountTTL  = 5 * time.Minute
	DefaultRedisDialTimout = 5 * time.Second

	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaGroupID  = "mallledger-dispatch"
	DefaultKafkaClientID = "mallledger"

	DefaultMetricsNamespace = "mallledger"
	DefaultMetricsPath      = "/metrics"

	DefaultGraceDays = 7

	DefaultScanInterval = 24 * time.Hour
	DefaultBillingDay   = 1
	DefaultLockTTL      = 10 * time.Minute
	DefaultHealthPort   = 9091

	DefaultChannelTimeout  = 10 * time.Second
	DefaultChannelRetryMax = 2
	DefaultRetentionDays   = 30
	DefaultPhoneRegion     = "MM"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// defaultThresholds mirrors the reference business policy.
var defaultThresholds = map[string]SeverityThresholds{
	"contractexpiry": {WarningAt: 30, CriticalAt: 7},
	"paymentoverdue": {WarningAt: 7, CriticalAt: 30},
	"absence":        {WarningAt: 1, CriticalAt: 0},
	"absencelimit":   {WarningAt: 3, CriticalAt: 3},
}

var defaultChannels = map[string]ChannelPolicy{
	"critical": {SendWhatsApp: true, SendSMS: true},
	"warning":  {SendWhatsApp: true},
	"info":     {},
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Values
// that were set explicitly are left unchanged.  Map-valued policy sections are
// completed key by key, so a file may override a single domain or severity.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.SlowThreshold == 0 {
		cfg.Server.SlowThreshold = DefaultSlowThreshold
	}
	if cfg.Server.TriggerRate > 0 && cfg.Server.TriggerBurst == 0 {
		cfg.Server.TriggerBurst = DefaultTriggerBurst
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnLifetime
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = DefaultStatementTimeout
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.UnreadCountTTL == 0 {
		cfg.Redis.UnreadCountTTL = DefaultUnreadCountTTL
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimout
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Billing ───────────────────────────────────────────────────────────────
	if cfg.Billing.GraceDays == 0 {
		cfg.Billing.GraceDays = DefaultGraceDays
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	if cfg.Scheduler.ScanInterval == 0 {
		cfg.Scheduler.ScanInterval = DefaultScanInterval
	}
	if cfg.Scheduler.BillingDay == 0 {
		cfg.Scheduler.BillingDay = DefaultBillingDay
	}
	if cfg.Scheduler.LockTTL == 0 {
		cfg.Scheduler.LockTTL = DefaultLockTTL
	}
	if cfg.Scheduler.HealthPort == 0 {
		cfg.Scheduler.HealthPort = DefaultHealthPort
	}

	// ── Notifications ─────────────────────────────────────────────────────────
	n := &cfg.Notifications
	if n.Thresholds == nil {
		n.Thresholds = make(map[string]SeverityThresholds, len(defaultThresholds))
	}
	for key, th := range defaultThresholds {
		if !hasPolicyKey(n.Thresholds, key) {
			n.Thresholds[key] = th
		}
	}
	if n.Channels == nil {
		n.Channels = make(map[string]ChannelPolicy, len(defaultChannels))
	}
	for key, rule := range defaultChannels {
		if !hasPolicyKey(n.Channels, key) {
			n.Channels[key] = rule
		}
	}
	if n.RetentionDays == nil {
		n.RetentionDays = make(map[string]int, 3)
	}
	for _, key := range []string{"info", "warning", "critical"} {
		if !hasPolicyKey(n.RetentionDays, key) {
			n.RetentionDays[key] = DefaultRetentionDays
		}
	}
	if n.DefaultRegion == "" {
		n.DefaultRegion = DefaultPhoneRegion
	}
	if n.DispatchMode == "" {
		n.DispatchMode = DispatchInline
	}
	for _, ch := range []*ChannelConfig{&n.WhatsApp, &n.SMS} {
		if ch.Timeout == 0 {
			ch.Timeout = DefaultChannelTimeout
		}
		if ch.RetryMax == 0 {
			ch.RetryMax = DefaultChannelRetryMax
		}
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// hasPolicyKey matches map keys ignoring case and underscores, since viper
// lowercases keys and files may write either contract_expiry or ContractExpiry.
func hasPolicyKey[V any](m map[string]V, key string) bool {
	for k := range m {
		if normalizeKey(k) == key {
			return true
		}
	}
	return false
}

func normalizeKey(k string) string {
	out := make([]byte, 0, len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c == '_' || c == '-' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

//Personal.AI order the ending

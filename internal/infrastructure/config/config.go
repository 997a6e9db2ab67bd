package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Order number backends
const (
	OrderNumberBackendGorm  = "gorm"
	OrderNumberBackendRedis = "redis"
)

// Notification sinks
const (
	NotificationSinkLog   = "log"
	NotificationSinkKafka = "kafka"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Log       LogConfig
	Order     OrderConfig
	Audit     AuditConfig
	GDPR      GDPRConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds the notification producer settings
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// OrderConfig holds pricing and order numbering settings
type OrderConfig struct {
	ShippingFlat          decimal.Decimal
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal // zero disables free shipping
	NumberBackend         string          // gorm or redis
	NotificationSink      string          // log or kafka
	NumberRetries         int
}

// AuditConfig holds audit retention settings
type AuditConfig struct {
	RetentionDays    int
	CleanupHour      int // hour of day (UTC) the retention job runs
	SchedulerEnabled bool
}

// GDPRConfig holds data-rights settings
type GDPRConfig struct {
	OrderRetentionYears int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool // Bridge zap entries to the collector when Enabled
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// Load reads config.toml from the working directory or /app, then lets
// STORE_-prefixed environment variables override it, e.g.
// STORE_DATABASE_PASSWORD for database.password.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return fromViper(v)
}

var defaults = map[string]any{
	"app.name":                          "storefront-backend",
	"app.env":                           "development",
	"database.host":                     "localhost",
	"database.port":                     5432,
	"database.user":                     "postgres",
	"database.dbname":                   "storefront",
	"database.sslmode":                  "disable",
	"database.max_open_conns":           25,
	"database.max_idle_conns":           5,
	"database.conn_max_lifetime":        60,
	"database.conn_max_idle_time":       30,
	"redis.host":                        "localhost",
	"redis.port":                        6379,
	"kafka.brokers":                     []string{"localhost:9092"},
	"kafka.topic":                       "storefront.notifications",
	"kafka.batch_timeout":               "50ms",
	"kafka.write_timeout":               "10s",
	"log.level":                         "info",
	"log.format":                        "console",
	"log.output":                        "stdout",
	"order.shipping_flat":               "10.00",
	"order.tax_rate":                    "0.08",
	"order.number_backend":              OrderNumberBackendGorm,
	"order.notification_sink":           NotificationSinkLog,
	"order.number_retries":              3,
	"audit.retention_days":              365,
	"audit.cleanup_hour":                2,
	"gdpr.order_retention_years":        7,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.metrics_interval":        "60s",
	"telemetry.logs_enabled":            true,
	"telemetry.db_slow_query_threshold": "200ms",
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("STORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Version: v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			BatchTimeout: v.GetDuration("kafka.batch_timeout"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Order: OrderConfig{
			NumberBackend:    v.GetString("order.number_backend"),
			NotificationSink: v.GetString("order.notification_sink"),
			NumberRetries:    v.GetInt("order.number_retries"),
		},
		Audit: AuditConfig{
			RetentionDays:    v.GetInt("audit.retention_days"),
			CleanupHour:      v.GetInt("audit.cleanup_hour"),
			SchedulerEnabled: v.GetBool("audit.scheduler_enabled"),
		},
		GDPR: GDPRConfig{
			OrderRetentionYears: v.GetInt("gdpr.order_retention_years"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	money := []struct {
		key    string
		target *decimal.Decimal
	}{
		{"order.shipping_flat", &cfg.Order.ShippingFlat},
		{"order.tax_rate", &cfg.Order.TaxRate},
		{"order.free_shipping_threshold", &cfg.Order.FreeShippingThreshold},
	}
	for _, m := range money {
		d, err := decimalSetting(v, m.key)
		if err != nil {
			return nil, err
		}
		*m.target = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decimalSetting reads a monetary value as a string so that "0.08" stays
// exact. Unset means zero.
func decimalSetting(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Order.ShippingFlat.IsNegative() {
		return fmt.Errorf("order.shipping_flat cannot be negative")
	}
	if c.Order.TaxRate.IsNegative() || c.Order.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("order.tax_rate must be between 0 and 1, got %s", c.Order.TaxRate)
	}
	if c.Order.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("order.free_shipping_threshold cannot be negative")
	}
	switch c.Order.NumberBackend {
	case OrderNumberBackendGorm, OrderNumberBackendRedis:
	default:
		return fmt.Errorf("order.number_backend must be %q or %q, got %q",
			OrderNumberBackendGorm, OrderNumberBackendRedis, c.Order.NumberBackend)
	}
	switch c.Order.NotificationSink {
	case NotificationSinkLog, NotificationSinkKafka:
	default:
		return fmt.Errorf("order.notification_sink must be %q or %q, got %q",
			NotificationSinkLog, NotificationSinkKafka, c.Order.NotificationSink)
	}
	if c.Order.NumberRetries < 0 {
		return fmt.Errorf("order.number_retries cannot be negative")
	}

	if c.Audit.RetentionDays < 1 {
		return fmt.Errorf("audit.retention_days must be at least 1")
	}
	if c.Audit.CleanupHour < 0 || c.Audit.CleanupHour > 23 {
		return fmt.Errorf("audit.cleanup_hour must be between 0 and 23, got %d", c.Audit.CleanupHour)
	}
	if c.GDPR.OrderRetentionYears < 1 {
		return fmt.Errorf("gdpr.order_retention_years must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

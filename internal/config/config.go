package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/taxsync/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Redis      RedisConfig
	Kafka      KafkaConfig
	Audit      AuditConfig     `validate:"required"`
	Sync       SyncConfig      `validate:"required"`
	Cache      CacheConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required,oneof=local api"`
}

type ServerConfig struct {
	Address         string        `validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required,oneof=debug info warn error"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled   bool
	Address   string `validate:"required_if=Enabled true"`
	Password  string
	DB        int
	KeyPrefix string `mapstructure:"key_prefix"`
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string `mapstructure:"consumer_group"`
	ClientID      string `mapstructure:"client_id"`
	TLS           bool
	UseSASL       bool   `mapstructure:"use_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUser      string `mapstructure:"sasl_user"`
	SASLPassword  string `mapstructure:"sasl_password"`
}

type AuditConfig struct {
	Destination    types.AuditDestination `validate:"required,oneof=pubsub postgres all"`
	Topic          string                 `validate:"required"`
	Timeout        time.Duration          `validate:"required"`
	MaxRetries     uint64                 `mapstructure:"max_retries"`
	InitialBackoff time.Duration          `mapstructure:"initial_backoff"`
}

type SyncConfig struct {
	LeaseTTL      time.Duration `mapstructure:"lease_ttl" validate:"required"`
	LeaseWait     time.Duration `mapstructure:"lease_wait"`
	LeaseRetry    time.Duration `mapstructure:"lease_retry" validate:"required"`
	CommitTimeout time.Duration `mapstructure:"commit_timeout" validate:"required"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout" validate:"required"`
	// MaxConcurrency bounds the pending calculations run in parallel per sync call
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"gte=1"`
	// MaxPending caps the size of a pending calculation batch
	MaxPending int `mapstructure:"max_pending" validate:"gte=1"`
}

type CacheConfig struct {
	Enabled         bool
	TTL             time.Duration
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required_if=Enabled true"`
	Burst             int     `validate:"required_if=Enabled true"`
	// IdleTTL evicts limiters of tenants idle longer than this
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type SentryConfig struct {
	Enabled     bool
	DSN         string `validate:"required_if=Enabled true"`
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/taxsync")

	setDefaults(v)

	// Set up environment variables support
	v.SetEnvPrefix("TAXSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so env overrides work without a config file
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", types.LogLevelInfo)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "taxsync")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "taxsync")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.auto_migrate", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "taxsync")

	v.SetDefault("kafka.brokers", []string{"localhost:29092"})
	v.SetDefault("kafka.consumer_group", "taxsync-audit")
	v.SetDefault("kafka.client_id", "taxsync")
	v.SetDefault("kafka.tls", false)
	v.SetDefault("kafka.use_sasl", false)
	v.SetDefault("kafka.sasl_mechanism", "")
	v.SetDefault("kafka.sasl_user", "")
	v.SetDefault("kafka.sasl_password", "")

	v.SetDefault("audit.destination", types.AuditDestinationPubSub)
	v.SetDefault("audit.topic", "taxsync.audit")
	v.SetDefault("audit.timeout", 2*time.Second)
	v.SetDefault("audit.max_retries", 3)
	v.SetDefault("audit.initial_backoff", 100*time.Millisecond)

	v.SetDefault("sync.lease_ttl", 30*time.Second)
	v.SetDefault("sync.lease_wait", 2*time.Second)
	v.SetDefault("sync.lease_retry", 50*time.Millisecond)
	v.SetDefault("sync.commit_timeout", 3*time.Second)
	v.SetDefault("sync.store_timeout", 5*time.Second)
	v.SetDefault("sync.max_concurrency", 8)
	v.SetDefault("sync.max_pending", 500)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080", ShutdownTimeout: 10 * time.Second},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Audit: AuditConfig{
			Destination:    types.AuditDestinationPubSub,
			Topic:          "taxsync.audit",
			Timeout:        500 * time.Millisecond,
			MaxRetries:     2,
			InitialBackoff: 10 * time.Millisecond,
		},
		Sync: SyncConfig{
			LeaseTTL:       5 * time.Second,
			LeaseWait:      200 * time.Millisecond,
			LeaseRetry:     10 * time.Millisecond,
			CommitTimeout:  time.Second,
			StoreTimeout:   time.Second,
			MaxConcurrency: 4,
			MaxPending:     100,
		},
		Cache:     CacheConfig{Enabled: true, TTL: time.Minute, CleanupInterval: 5 * time.Minute},
		RateLimit: RateLimitConfig{Enabled: false, RequestsPerSecond: 20, Burst: 40, IdleTTL: 10 * time.Minute},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

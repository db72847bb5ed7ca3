package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"

	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/registry"
	"github.com/sta4152/datahub/pkg/storage/cache"
	"github.com/sta4152/datahub/pkg/storage/sqlstore"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "DATAHUB_"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Source        SourceConfig        `koanf:"source"`
	Store         StoreConfig         `koanf:"store"`
	Cache         CacheConfig         `koanf:"cache"`
	Refresh       RefreshConfig       `koanf:"refresh"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" validate:"min=0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SourceConfig selects where schema documents are read from
type SourceConfig struct {
	Type string   `koanf:"type" validate:"oneof=dir s3"`
	Dir  string   `koanf:"dir" validate:"required_if=Type dir"`
	S3   S3Config `koanf:"s3"`
}

// S3Config holds the S3 source settings
type S3Config struct {
	Endpoint     string `koanf:"endpoint" validate:"omitempty,url"`
	Region       string `koanf:"region"`
	Bucket       string `koanf:"bucket"`
	Prefix       string `koanf:"prefix"`
	AccessKey    string `koanf:"access_key"`
	SecretKey    string `koanf:"secret_key"`
	UsePathStyle bool   `koanf:"use_path_style"`
}

// StoreConfig configures snapshot persistence
type StoreConfig struct {
	Type        string        `koanf:"type" validate:"oneof=none postgres sqlite"`
	DSN         string        `koanf:"dsn" validate:"required_unless=Type none"`
	MaxConns    int           `koanf:"max_conns" validate:"min=0"`
	MinConns    int           `koanf:"min_conns" validate:"min=0,ltefield=MaxConns"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=0"`
	MaxLifetime time.Duration `koanf:"max_lifetime" validate:"min=0"`
}

// CacheConfig configures the aspect spec caches. An empty RedisURL disables
// the shared tier.
type CacheConfig struct {
	MaxEntries    int           `koanf:"max_entries" validate:"min=0"`
	TTL           time.Duration `koanf:"ttl" validate:"min=0"`
	RedisURL      string        `koanf:"redis_url" validate:"omitempty,url"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"min=0"`
	RedisPoolSize int           `koanf:"redis_pool_size" validate:"min=0"`
}

// RefreshConfig controls when the registry reloads
type RefreshConfig struct {
	Watch       bool          `koanf:"watch"`
	Debounce    time.Duration `koanf:"debounce" validate:"min=0"`
	Schedule    string        `koanf:"schedule"`
	Concurrency int           `koanf:"concurrency" validate:"min=0"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string     `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	MetricsEnabled bool       `koanf:"metrics_enabled"`
	OTel           OTelConfig `koanf:"otel"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Endpoint       string  `koanf:"endpoint" validate:"required_if=Enabled true"`
	ServiceName    string  `koanf:"service_name" validate:"required_if=Enabled true"`
	ServiceVersion string  `koanf:"service_version"`
	Insecure       bool    `koanf:"insecure"`
	SampleRatio    float64 `koanf:"sample_ratio" validate:"min=0,max=1"`
}

// Defaults returns the default configuration keys
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "15s",
		"server.idle_timeout":     "60s",
		"server.shutdown_timeout": "30s",
		"server.max_body_bytes":   10 * 1024 * 1024,

		"source.type": "dir",
		"source.dir":  "./schemas",

		"store.type":         "none",
		"store.max_conns":    10,
		"store.min_conns":    0,
		"store.timeout":      "5s",
		"store.max_lifetime": "30m",

		"cache.max_entries":     cache.DefaultMaxEntries,
		"cache.ttl":             cache.DefaultTTL.String(),
		"cache.redis_pool_size": 10,

		"refresh.watch":    false,
		"refresh.debounce": registry.DefaultDebounce.String(),
		"refresh.schedule": "",

		"observability.log_level":            "info",
		"observability.metrics_enabled":      true,
		"observability.otel.enabled":         false,
		"observability.otel.endpoint":        "localhost:4317",
		"observability.otel.service_name":    "datahub-entity-registry",
		"observability.otel.service_version": "1.0.0",
		"observability.otel.insecure":        true,
		"observability.otel.sample_ratio":    1.0,
	}
}

// Load reads configuration from defaults, the JSON file at path (if path is
// not empty) and DATAHUB_ environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// envTransform maps DATAHUB_STORE__MAX_CONNS to store.max_conns
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Source.Type == "s3" && c.Source.S3.Bucket == "" {
		return fmt.Errorf("source.s3.bucket is required for the s3 source")
	}
	if c.Refresh.Watch && c.Source.Type != "dir" {
		return fmt.Errorf("refresh.watch requires the dir source")
	}
	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid refresh.schedule %q: %w", c.Refresh.Schedule, err)
		}
	}
	return nil
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	level, err := observability.ParseLogLevel(c.Observability.LogLevel)
	if err != nil {
		return observability.InfoLevel
	}
	return level
}

// OTel returns the OpenTelemetry settings for observability.InitOTel
func (c *Config) OTel() observability.OTelConfig {
	o := c.Observability.OTel
	return observability.OTelConfig{
		Enabled:        o.Enabled,
		Endpoint:       o.Endpoint,
		ServiceName:    o.ServiceName,
		ServiceVersion: o.ServiceVersion,
		Insecure:       o.Insecure,
		SampleRatio:    o.SampleRatio,
	}
}

// S3 returns the settings for registry.NewS3Source
func (c *Config) S3() registry.S3Config {
	s := c.Source.S3
	return registry.S3Config{
		Endpoint:     s.Endpoint,
		Region:       s.Region,
		Bucket:       s.Bucket,
		Prefix:       s.Prefix,
		AccessKey:    s.AccessKey,
		SecretKey:    s.SecretKey,
		UsePathStyle: s.UsePathStyle,
	}
}

// SQLStore returns the settings for sqlstore.Open. ok is false when no store
// is configured.
func (c *Config) SQLStore() (cfg sqlstore.Config, ok bool, err error) {
	if c.Store.Type == "none" {
		return sqlstore.Config{}, false, nil
	}
	dialect, err := sqlstore.ParseDialect(c.Store.Type)
	if err != nil {
		return sqlstore.Config{}, false, err
	}
	return sqlstore.Config{
		Dialect:     dialect,
		DSN:         c.Store.DSN,
		MaxConns:    c.Store.MaxConns,
		MinConns:    c.Store.MinConns,
		Timeout:     c.Store.Timeout,
		MaxLifetime: c.Store.MaxLifetime,
	}, true, nil
}

// Redis returns the settings for cache.NewRedisCache. ok is false when no
// Redis URL is configured.
func (c *Config) Redis() (cache.RedisConfig, bool) {
	if c.Cache.RedisURL == "" {
		return cache.RedisConfig{}, false
	}
	return cache.RedisConfig{
		URL:      c.Cache.RedisURL,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
		PoolSize: c.Cache.RedisPoolSize,
		TTL:      c.Cache.TTL,
	}, true
}

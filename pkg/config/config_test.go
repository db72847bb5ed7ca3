package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/storage/sqlstore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "dir", cfg.Source.Type)
	assert.Equal(t, "./schemas", cfg.Source.Dir)
	assert.Equal(t, "none", cfg.Store.Type)
	assert.Equal(t, 1024, cfg.Cache.MaxEntries)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Refresh.Debounce)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel())
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.OTel().Enabled)

	_, ok, err := cfg.SQLStore()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok = cfg.Redis()
	assert.False(t, ok)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9000, "shutdown_timeout": "5s"},
		"source": {"type": "s3", "s3": {"bucket": "schemas", "prefix": "models/", "region": "eu-west-1"}},
		"store": {"type": "postgres", "dsn": "postgres://localhost/datahub", "max_conns": 4},
		"cache": {"redis_url": "redis://localhost:6379", "ttl": "10m"},
		"refresh": {"schedule": "@every 5m"},
		"observability": {"log_level": "debug"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "schemas", cfg.S3().Bucket)
	assert.Equal(t, "models/", cfg.S3().Prefix)
	assert.Equal(t, "eu-west-1", cfg.S3().Region)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel())

	storeCfg, ok, err := cfg.SQLStore()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sqlstore.Postgres, storeCfg.Dialect)
	assert.Equal(t, 4, storeCfg.MaxConns)

	redisCfg, ok := cfg.Redis()
	require.True(t, ok)
	assert.Equal(t, "redis://localhost:6379", redisCfg.URL)
	assert.Equal(t, 10*time.Minute, redisCfg.TTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 9000}, "store": {"type": "sqlite", "dsn": "file.db"}}`)

	t.Setenv("DATAHUB_SERVER__PORT", "9100")
	t.Setenv("DATAHUB_STORE__MAX_CONNS", "3")
	t.Setenv("DATAHUB_REFRESH__WATCH", "true")
	t.Setenv("DATAHUB_SOURCE__DIR", "/etc/datahub/schemas")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Store.MaxConns)
	assert.True(t, cfg.Refresh.Watch)
	assert.Equal(t, "/etc/datahub/schemas", cfg.Source.Dir)

	storeCfg, ok, err := cfg.SQLStore()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sqlstore.SQLite, storeCfg.Dialect)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "unknown source type", content: `{"source": {"type": "git"}}`, wantErr: "Type"},
		{name: "s3 without bucket", content: `{"source": {"type": "s3"}}`, wantErr: "source.s3.bucket is required"},
		{name: "store without dsn", content: `{"store": {"type": "postgres"}}`, wantErr: "DSN"},
		{name: "unknown store type", content: `{"store": {"type": "mysql", "dsn": "x"}}`, wantErr: "Type"},
		{name: "port out of range", content: `{"server": {"port": 70000}}`, wantErr: "Port"},
		{name: "bad log level", content: `{"observability": {"log_level": "verbose"}}`, wantErr: "LogLevel"},
		{name: "watch on s3", content: `{"source": {"type": "s3", "s3": {"bucket": "b"}}, "refresh": {"watch": true}}`, wantErr: "requires the dir source"},
		{name: "bad schedule", content: `{"refresh": {"schedule": "every so often"}}`, wantErr: "invalid refresh.schedule"},
		{name: "sample ratio", content: `{"observability": {"otel": {"sample_ratio": 2}}}`, wantErr: "SampleRatio"},
		{name: "otel without endpoint", content: `{"observability": {"otel": {"enabled": true, "endpoint": ""}}}`, wantErr: "Endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "store.max_conns", envTransform("DATAHUB_STORE__MAX_CONNS"))
	assert.Equal(t, "observability.otel.enabled", envTransform("DATAHUB_OBSERVABILITY__OTEL__ENABLED"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 1000, cfg.Store.MaxReports)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./reports", cfg.Storage.LocalPath)
	assert.Equal(t, "thread-dumps", cfg.Storage.Prefix)
	assert.Equal(t, "jstack", cfg.JDK.JstackPath)
	assert.Equal(t, "jps", cfg.JDK.JpsPath)
	assert.Equal(t, 30*time.Second, cfg.JDK.DumpTimeout)
	assert.Equal(t, "json", cfg.Analysis.DefaultFormat)
	assert.Equal(t, 4, cfg.Analysis.BatchWorkers)
	assert.Equal(t, int64(256<<20), cfg.Analysis.MaxInputBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: "127.0.0.1:9090"
  write_timeout: 2m
store:
  type: sqlite
  dsn: "file:reports?mode=memory"
  max_reports: 50
storage:
  type: cos
  bucket: dumps-1250000000
  region: ap-guangzhou
  secret_id: id
  secret_key: key
  prefix: prod/payments
jdk:
  jstack_path: /opt/jdk/bin/jstack
  dump_timeout: 10s
analysis:
  default_format: text
  batch_workers: 8
  max_input_bytes: 1048576
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "file:reports?mode=memory", cfg.Store.DSN)
	assert.Equal(t, 50, cfg.Store.MaxReports)
	assert.Equal(t, "cos", cfg.Storage.Type)
	assert.Equal(t, "dumps-1250000000", cfg.Storage.Bucket)
	assert.Equal(t, "prod/payments", cfg.Storage.Prefix)
	assert.Equal(t, "/opt/jdk/bin/jstack", cfg.JDK.JstackPath)
	assert.Equal(t, 10*time.Second, cfg.JDK.DumpTimeout)
	assert.Equal(t, "text", cfg.Analysis.DefaultFormat)
	assert.Equal(t, 8, cfg.Analysis.BatchWorkers)
	assert.Equal(t, int64(1<<20), cfg.Analysis.MaxInputBytes)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("THREADDUMP_SERVER_ADDR", ":7070")
	t.Setenv("THREADDUMP_ANALYSIS_BATCH_WORKERS", "2")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Analysis.BatchWorkers)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [unclosed"), 0644))

	_, err := Load(configFile)
	assert.Error(t, err)
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte("store:\n  type: memory\n  max_reports: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Store.MaxReports)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Store.Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store.Type = "redis" }, "unsupported store type"},
		{"sqlite without dsn", func(c *Config) { c.Store.Type = "sqlite"; c.Store.DSN = "" }, "requires a dsn"},
		{"negative max", func(c *Config) { c.Store.MaxReports = -1 }, "max_reports"},
		{"zero workers", func(c *Config) { c.Analysis.BatchWorkers = 0 }, "batch workers"},
		{"zero timeout", func(c *Config) { c.JDK.DumpTimeout = 0 }, "dump timeout"},
		{"zero upload", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"zero input cap", func(c *Config) { c.Analysis.MaxInputBytes = 0 }, "max_input_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

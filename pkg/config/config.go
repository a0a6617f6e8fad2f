// Package config provides configuration management for the thread dump analysis service.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. THREADDUMP_SERVER_ADDR.
const EnvPrefix = "THREADDUMP"

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Storage  StorageConfig  `mapstructure:"storage"`
	JDK      JDKConfig      `mapstructure:"jdk"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// StoreConfig selects the in-memory report store.
type StoreConfig struct {
	Type       string `mapstructure:"type"` // memory or sqlite
	DSN        string `mapstructure:"dsn"`
	MaxReports int    `mapstructure:"max_reports"` // 0 means unbounded
}

// StorageConfig holds report export storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g. "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`
	LocalPath string `mapstructure:"local_path"`
	// Compression applied to exported reports: none, gzip or zstd.
	Compression string `mapstructure:"compression"`
	// Prefix is prepended to every exported report key, e.g. "thread-dumps".
	Prefix string `mapstructure:"prefix"`
}

// JDKConfig locates the JDK tools used for process discovery and dump generation.
type JDKConfig struct {
	JstackPath  string        `mapstructure:"jstack_path"`
	JpsPath     string        `mapstructure:"jps_path"`
	DumpTimeout time.Duration `mapstructure:"dump_timeout"`
}

// AnalysisConfig holds analysis-related configuration.
type AnalysisConfig struct {
	DefaultFormat string `mapstructure:"default_format"`
	BatchWorkers  int    `mapstructure:"batch_workers"`
	// MaxInputBytes caps a dump after decompression. The HTTP server applies
	// server.max_upload_bytes instead.
	MaxInputBytes int64 `mapstructure:"max_input_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty means stderr
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := newViper()
	var cfg Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from the specified file path.
// A missing file is not an error; defaults and environment overrides still apply.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/thread-dump-analysis")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(50<<20))

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.dsn", "file::memory:?cache=shared")
	v.SetDefault("store.max_reports", 1000)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./reports")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.secret_id", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.domain", "")
	v.SetDefault("storage.scheme", "")
	v.SetDefault("storage.compression", "none")
	v.SetDefault("storage.prefix", "thread-dumps")

	v.SetDefault("jdk.jstack_path", "jstack")
	v.SetDefault("jdk.jps_path", "jps")
	v.SetDefault("jdk.dump_timeout", 30*time.Second)

	v.SetDefault("analysis.default_format", "json")
	v.SetDefault("analysis.batch_workers", 4)
	v.SetDefault("analysis.max_input_bytes", int64(256<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}
	if c.Store.Type == "sqlite" && c.Store.DSN == "" {
		return fmt.Errorf("sqlite store requires a dsn")
	}
	if c.Store.MaxReports < 0 {
		return fmt.Errorf("store max_reports must not be negative")
	}

	// Storage validation is delegated to the storage package.

	if c.Analysis.BatchWorkers < 1 {
		return fmt.Errorf("batch workers must be at least 1")
	}
	if c.Analysis.MaxInputBytes <= 0 {
		return fmt.Errorf("analysis max_input_bytes must be positive")
	}
	if c.JDK.DumpTimeout <= 0 {
		return fmt.Errorf("jdk dump timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be positive")
	}
	return nil
}

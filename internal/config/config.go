package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by Store.Backend.
const (
	BackendRedis    = "redis"
	BackendEmbedded = "embedded"
)

// Trim modes accepted by Stream.Trim.
const (
	TrimApprox = "approx"
	TrimExact  = "exact"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Stream StreamConfig `json:"stream" yaml:"stream"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port int `json:"port" yaml:"port" env:"PORT"`
	// RESPAddr is where `store serve` exposes the embedded store.
	RESPAddr string `json:"respAddr" yaml:"respAddr" env:"RESP_ADDR"`
}

// StoreConfig selects and tunes the backing stream store.
type StoreConfig struct {
	Backend       string        `json:"backend" yaml:"backend" env:"STORE_BACKEND"`
	RedisURL      string        `json:"redisURL" yaml:"redisURL" env:"REDIS_URL"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" env:"STORE_TIMEOUT"`
	PoolMaxIdle   int           `json:"poolMaxIdle" yaml:"poolMaxIdle" env:"REDIS_POOL_MAX_IDLE"`
	PoolMaxActive int           `json:"poolMaxActive" yaml:"poolMaxActive" env:"REDIS_POOL_MAX_ACTIVE"`
	DataDir       string        `json:"dataDir" yaml:"dataDir" env:"DATA_DIR"`
	InMemory      bool          `json:"inMemory" yaml:"inMemory" env:"STORE_IN_MEMORY"`
	Fsync         string        `json:"fsync" yaml:"fsync" env:"FSYNC"`
	Compress      bool          `json:"compress" yaml:"compress" env:"COMPRESS"`
}

// StreamConfig describes the chunk stream.
type StreamConfig struct {
	Key    string `json:"key" yaml:"key" env:"STREAM_KEY"`
	MaxLen int64  `json:"maxLen" yaml:"maxLen" env:"STREAM_MAXLEN"`
	Trim   string `json:"trim" yaml:"trim" env:"STREAM_TRIM"`
	// Retention evicts records older than this. Zero keeps records until trimmed by length.
	Retention time.Duration `json:"retention" yaml:"retention" env:"STREAM_RETENTION"`
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"AUDIO_LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"AUDIO_LOG_FORMAT"`
	// Redact lists field keys whose values never reach the log.
	Redact []string `json:"redact" yaml:"redact" env:"AUDIO_LOG_REDACT" envSeparator:","`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8081, RESPAddr: ":6380"},
		Store: StoreConfig{
			Backend:     BackendRedis,
			RedisURL:    "redis://localhost:6379",
			Timeout:     5 * time.Second,
			PoolMaxIdle: 8,
			Fsync:       "interval",
		},
		Stream: StreamConfig{Key: "audio_stream", MaxLen: 500, Trim: TrimApprox},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// ExactTrim reports whether the stream is trimmed to exactly MaxLen.
func (c Config) ExactTrim() bool { return strings.EqualFold(c.Stream.Trim, TrimExact) }

// Addr returns the HTTP listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redisURL is required for the redis backend"))
		}
	case BackendEmbedded:
		if c.Store.DataDir == "" && !c.Store.InMemory {
			errs = append(errs, errors.New("store.dataDir is required for the embedded backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be %s or %s", c.Store.Backend, BackendRedis, BackendEmbedded))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("store.timeout must be positive"))
	}
	if c.Stream.Key == "" {
		errs = append(errs, errors.New("stream.key is required"))
	}
	if c.Stream.MaxLen <= 0 {
		errs = append(errs, errors.New("stream.maxLen must be positive"))
	}
	if t := strings.ToLower(c.Stream.Trim); t != TrimApprox && t != TrimExact {
		errs = append(errs, fmt.Errorf("stream.trim %q must be %s or %s", c.Stream.Trim, TrimApprox, TrimExact))
	}
	if c.Stream.Retention < 0 {
		errs = append(errs, errors.New("stream.retention must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

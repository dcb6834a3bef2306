package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8081 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Stream.Key != "audio_stream" || cfg.Stream.MaxLen != 500 {
		t.Fatalf("stream defaults = %+v", cfg.Stream)
	}
	if cfg.Store.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.Store.Timeout)
	}
	if cfg.ExactTrim() {
		t.Fatalf("default trim should be approximate")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "audiolog.json")
	data := []byte(`{"server":{"port":9000},"stream":{"key":"mics","maxLen":50,"trim":"exact"}}`)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Stream.Key != "mics" || cfg.Stream.MaxLen != 50 || !cfg.ExactTrim() {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Fatalf("unset fields should keep defaults, backend=%q", cfg.Store.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "audiolog.yaml")
	data := []byte("store:\n  backend: embedded\n  dataDir: /tmp/al\n  timeout: 2s\nstream:\n  retention: 1h\n")
	if err := os.WriteFile(file, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != BackendEmbedded || cfg.Store.DataDir != "/tmp/al" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Store.Timeout != 2*time.Second || cfg.Stream.Retention != time.Hour {
		t.Fatalf("durations: timeout=%v retention=%v", cfg.Store.Timeout, cfg.Stream.Retention)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("STREAM_MAXLEN", "42")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("AUDIO_LOG_REDACT", "remote,conn_id")

	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Store.RedisURL != "redis://cache:6379/0" || cfg.Server.Port != 9090 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Stream.MaxLen != 42 || cfg.Store.Timeout != 750*time.Millisecond {
		t.Fatalf("numeric overrides: %+v", cfg)
	}
	if len(cfg.Log.Redact) != 2 || cfg.Log.Redact[1] != "conn_id" {
		t.Fatalf("redact = %v", cfg.Log.Redact)
	}
	if cfg.Stream.Key != "audio_stream" {
		t.Fatalf("unset variables must keep defaults")
	}
}

func TestFromEnvDotenv(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("STREAM_KEY=from_dotenv\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("STREAM_KEY") })

	cfg := Default()
	if err := FromEnv(&cfg, file, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Stream.Key != "from_dotenv" {
		t.Fatalf("key = %q", cfg.Stream.Key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad backend", func(c *Config) { c.Store.Backend = "memcached" }, "store.backend"},
		{"embedded needs dir", func(c *Config) { c.Store.Backend = BackendEmbedded }, "dataDir"},
		{"zero maxlen", func(c *Config) { c.Stream.MaxLen = 0 }, "maxLen"},
		{"bad trim", func(c *Config) { c.Stream.Trim = "fuzzy" }, "stream.trim"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"zero timeout", func(c *Config) { c.Store.Timeout = 0 }, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

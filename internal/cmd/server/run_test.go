package serverrun

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/gauthamkulal77/audio-pipeline/internal/config"
	"github.com/gauthamkulal77/audio-pipeline/internal/runtime"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audiolog.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\nstream:\n  maxLen: 42\n  key: from_file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("STREAM_KEY=from_dotenv\n"), 0o644); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("STREAM_MAXLEN", "77")
	t.Cleanup(func() { _ = os.Unsetenv("STREAM_KEY") })

	cfg, err := LoadConfig(Options{ConfigPath: path, DotenvFiles: []string{dotenv}, Port: 9100})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("port = %d, want flag value", cfg.Server.Port)
	}
	if cfg.Stream.MaxLen != 77 {
		t.Fatalf("maxLen = %d, want env value", cfg.Stream.MaxLen)
	}
	if cfg.Stream.Key != "from_dotenv" {
		t.Fatalf("key = %q, want dotenv value", cfg.Stream.Key)
	}
}

func TestLoadConfigEmbeddedDataDirFallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg, err := LoadConfig(Options{Backend: cfgpkg.BackendEmbedded})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if filepath.Base(cfg.Store.DataDir) != "store" {
		t.Fatalf("data dir = %q", cfg.Store.DataDir)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	if _, err := LoadConfig(Options{Backend: "memcached"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestRunUnreachableStore(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.RedisURL = fmt.Sprintf("redis://127.0.0.1:%d", freePort(t))
	cfg.Store.Timeout = 300 * time.Millisecond
	err := Run(context.Background(), cfg, logpkg.NewNopLogger())
	if !errors.Is(err, runtime.ErrStartup) {
		t.Fatalf("expected ErrStartup, got %v", err)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.Backend = cfgpkg.BackendEmbedded
	cfg.Store.InMemory = true
	cfg.Server.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, logpkg.NewNopLogger()) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/v1/healthz", cfg.Server.Port)
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestCompactStore(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.Backend = cfgpkg.BackendEmbedded
	cfg.Store.DataDir = t.TempDir()
	if err := CompactStore(cfg, logpkg.NewNopLogger()); err != nil {
		t.Fatalf("compact: %v", err)
	}
}

func TestServeStoreNeedsEmbedded(t *testing.T) {
	if err := ServeStore(context.Background(), cfgpkg.Default(), logpkg.NewNopLogger()); err == nil {
		t.Fatalf("expected error for redis backend")
	}
}

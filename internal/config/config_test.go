package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "{}\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("server.addr: got %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Store.Backend != "file" || cfg.Store.Path != DefaultStorePath {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.Registrar.BaseURL != DefaultRegistrarURL {
		t.Errorf("registrar.base_url: got %q", cfg.Registrar.BaseURL)
	}
	if !cfg.Registrar.Enabled {
		t.Error("registrar.enabled: got false, want true")
	}
	if cfg.Registrar.Timeout != DefaultRegistrarTimeout {
		t.Errorf("registrar.timeout: got %v", cfg.Registrar.Timeout)
	}
	if cfg.Reconciler.Interval != time.Second {
		t.Errorf("reconciler.interval: got %v, want 1s", cfg.Reconciler.Interval)
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level: got %v, want INFO", cfg.Log.SlogLevel())
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("server.addr: got %q", cfg.Server.Addr)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  addr: "127.0.0.1:9000"
log:
  level: debug
store:
  backend: remote
  path: /tmp/fallback.json
  snapshot_url: https://example.com/uids.json
registrar:
  base_url: http://registrar.local:8080
  key_env: MY_KEY
  key: literal
  timeout: 2s
reconciler:
  interval: 250ms
stream:
  interval: 10s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server.addr: got %q", cfg.Server.Addr)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v, want DEBUG", cfg.Log.SlogLevel())
	}
	if cfg.Store.Backend != "remote" || cfg.Store.SnapshotURL != "https://example.com/uids.json" {
		t.Errorf("store: got %+v", cfg.Store)
	}
	if cfg.Registrar.Timeout != 2*time.Second {
		t.Errorf("registrar.timeout: got %v", cfg.Registrar.Timeout)
	}
	if cfg.Reconciler.Interval != 250*time.Millisecond {
		t.Errorf("reconciler.interval: got %v", cfg.Reconciler.Interval)
	}
	if cfg.Stream.Interval != 10*time.Second {
		t.Errorf("stream.interval: got %v", cfg.Stream.Interval)
	}
}

func TestRegistrarKey_EnvWins(t *testing.T) {
	t.Setenv("TEST_REGISTRAR_KEY", "from-env")
	r := RegistrarConfig{KeyEnv: "TEST_REGISTRAR_KEY", KeyValue: "literal"}
	if k := r.Key(); k != "from-env" {
		t.Errorf("Key(): got %q, want from-env", k)
	}

	t.Setenv("TEST_REGISTRAR_KEY", "")
	if k := r.Key(); k != "literal" {
		t.Errorf("Key() with empty env: got %q, want literal", k)
	}
}

func TestRedisPassword(t *testing.T) {
	t.Setenv("TEST_REDIS_PW", "pw")
	if p := (RedisConfig{PasswordEnv: "TEST_REDIS_PW"}).Password(); p != "pw" {
		t.Errorf("Password(): got %q", p)
	}
	if p := (RedisConfig{}).Password(); p != "" {
		t.Errorf("Password() without env: got %q", p)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad addr":        "server:\n  addr: nope\n",
		"bad level":       "log:\n  level: loud\n",
		"unknown backend": "store:\n  backend: etcd\n",
		"remote no url":   "store:\n  backend: remote\n",
		"bad registrar":   "registrar:\n  base_url: ftp://x\n",
		"zero interval":   "reconciler:\n  interval: 0s\n",
		"neg timeout":     "registrar:\n  timeout: -1s\n",
		"bad yaml":        "server: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_RegistrarDisabledSkipsURLCheck(t *testing.T) {
	p := writeConfig(t, "registrar:\n  enabled: false\n  base_url: \"\"\n")
	if _, err := Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// A truncate-then-write can surface as two events; wait for the final content.
	timeout := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-got:
			if cfg.Log.SlogLevel() == slog.LevelDebug {
				return
			}
		case <-timeout:
			t.Fatal("no reload with level debug after write")
		}
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawchat/pkg/logx"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadDefaultsWhenFilesAreMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawchat.yaml")
	writeFile(t, path, `
server:
  addr: ":9000"
  pong_wait: 30s
store:
  driver: sqlite
  sqlite:
    path: /tmp/drawchat.db
broadcast:
  delivery_timeout: 3s
  exclude_sender: true
  prune_stale: true
census:
  enabled: false
log:
  level: debug
  format: json
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.PongWait)
	assert.Equal(t, "/ws", cfg.Server.Path)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/drawchat.db", cfg.Store.SQLite.Path)
	assert.Equal(t, 3*time.Second, cfg.Broadcast.DeliveryTimeout)
	assert.True(t, cfg.Broadcast.ExcludeSender)
	assert.True(t, cfg.Broadcast.PruneStale)
	assert.False(t, cfg.Census.Enabled)
	assert.Equal(t, logx.Config{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawchat.yaml")
	writeFile(t, path, "server:\n  adress: \":1\"\n")
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drawchat.yaml")
	writeFile(t, path, "store:\n  driver: memory\n")
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "DRAWCHAT_STORE_REDIS_URL=redis://from-dotenv:6379/0\n")

	t.Setenv("DRAWCHAT_STORE_DRIVER", "redis")
	t.Setenv("DRAWCHAT_BROADCAST_MAX_IN_FLIGHT", "16")
	t.Setenv("DRAWCHAT_SERVER_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DRAWCHAT_LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = os.Unsetenv("DRAWCHAT_STORE_REDIS_URL") })

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "redis://from-dotenv:6379/0", cfg.Store.Redis.URL)
	assert.Equal(t, 16, cfg.Broadcast.MaxInFlight)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Server.Addr = ""
	bad.Server.Path = "ws"
	bad.Store.Driver = "mongo"
	bad.Broadcast.DeliveryTimeout = -time.Second
	bad.Broadcast.MaxInFlight = -1
	bad.Log.Level = "chatty"
	err := bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.addr", "server.path", "store.driver", "broadcast.delivery_timeout", "max_in_flight", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawchat.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, "", logx.Nop(), func(cfg Config) {
			mu.Lock()
			seen = append(seen, cfg.Log.Level)
			mu.Unlock()
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "log:\n  level: debug\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "debug"
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := NewConfigLoader("", "PADSCANTEST").LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.HTTP.Insecure)
	assert.Equal(t, 2*time.Second, cfg.Handshake.Wait)
	assert.Equal(t, 100*time.Millisecond, cfg.Handshake.PollInterval)
	assert.Equal(t, "polling", cfg.Handshake.Transport)
	assert.Equal(t, "status", cfg.Admin.Strategy)
	assert.Equal(t, DefaultCredentials(), cfg.Admin.Credentials)
	assert.Equal(t, "file", cfg.Revision.Store)
	assert.Equal(t, "./data/revision_lookup.json", cfg.Revision.FilePath)
	assert.Equal(t, "padscan:revisions", cfg.Revision.Redis.Key)
	assert.Equal(t, 1, cfg.Scan.Concurrency)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "padscan.yaml")
	content := `
handshake:
  transport: websocket
  wait: 5s
admin:
  strategy: redirect-post
  credentials:
    - user: root
      password: toor
revision:
  store: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PADSCANTEST_HTTP_TIMEOUT", "7s")

	cfg, err := NewConfigLoader(path, "PADSCANTEST").LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "websocket", cfg.Handshake.Transport)
	assert.Equal(t, 5*time.Second, cfg.Handshake.Wait)
	assert.Equal(t, 7*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "redirect-post", cfg.Admin.Strategy)
	assert.Equal(t, []CredentialConfig{{User: "root", Password: "toor"}}, cfg.Admin.Credentials)
	assert.Equal(t, "redis", cfg.Revision.Store)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := NewConfigLoader(filepath.Join(t.TempDir(), "nope.yaml"), "PADSCANTEST").LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			HTTP:      HTTPConfig{Timeout: time.Second, ConnectTimeout: time.Second},
			Handshake: HandshakeConfig{Wait: time.Second, PollInterval: time.Millisecond, Transport: "auto"},
			Admin:     AdminConfig{Strategy: "status"},
			Revision:  RevisionConfig{Store: "none"},
			Scan:      ScanConfig{Concurrency: 4},
		}
	}

	cfg := base()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 4, cfg.Scan.MaxConcurrency)

	cfg = base()
	cfg.Handshake.Transport = "carrier-pigeon"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Admin.Strategy = "guess"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Scan.SocketIOMajor = 5
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Revision.Store = "redis"
	assert.Error(t, Validate(cfg))
}

func TestEnvLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PADSCAN_ENVLOADER_TEST=loaded\n"), 0o600))
	t.Setenv("PADSCAN_ENVLOADER_TEST", "")
	os.Unsetenv("PADSCAN_ENVLOADER_TEST")

	require.NoError(t, LoadEnvFiles(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("PADSCAN_ENVLOADER_TEST"))
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o600))

	var calls atomic.Int32
	fw, err := NewFileWatcher(path, func(string) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	fw.SetReloadDelay(20 * time.Millisecond)
	require.NoError(t, fw.Start())
	defer fw.Stop()

	// 其他文件的变化不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("c"), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

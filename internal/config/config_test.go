package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultToolsFile, cfg.ToolsFile)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tendril.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
workers: 2
max_steps: 50
workflows: [a.yaml]
redis:
  addr: localhost:6379
  channel: runs
shutdown_timeout: 3s
`), 0o644))

	t.Setenv("TENDRIL_WORKERS", "4")
	t.Setenv("TENDRIL_WORKFLOWS", "b.yaml, c.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr, "file overrides default")
	assert.Equal(t, 4, cfg.Workers, "env overrides file")
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, []string{"b.yaml", "c.yaml"}, cfg.Workflows)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "runs", cfg.Redis.Channel)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("TENDRIL_MAX_STEPS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "TENDRIL_MAX_STEPS")
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workers = -1
	cfg.ShutdownTimeout = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.ErrorIs(t, err, ErrInvalidTimeout)
	assert.ErrorContains(t, err, "loud")
}

func TestLoadFromEnv_Redact(t *testing.T) {
	t.Setenv("TENDRIL_REDACT", "password,token")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"password", "token"}, cfg.Redact)

	cfg.Redact = []string{"("}
	assert.ErrorContains(t, cfg.Validate(), "redact pattern")
}

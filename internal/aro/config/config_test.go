package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Default_isRunnableWithoutAFile(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "Application-Start", cfg.EntryPoint)
	assert.Equal(t, "machine", cfg.OutputContext)
	assert.Equal(t, 5*time.Second, cfg.QuiescenceTimeout.Std())
}

func Test_Load_emptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func Test_Load_mergesFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aro.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
entry_point = "Checkout-Start"
log_level = "debug"
quiescence_timeout = "10s"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Checkout-Start", cfg.EntryPoint)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.QuiescenceTimeout.Std())
	// unset fields keep their defaults
	assert.Equal(t, "machine", cfg.OutputContext)
	assert.Equal(t, "json", cfg.LogFormat)
}

func Test_Load_missingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vaultd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[Server]
DataDir = "`+dir+`"
Metrics = true

[Logging]
Level = "DEBUG"
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, defaultAddress, cfg.Server.Address)
	assert.Equal(t, dir, cfg.Server.DataDir)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestFixupAndValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Server.DataDir = t.TempDir()
	require.NoError(t, cfg.FixupAndValidate())
	assert.Equal(t, defaultAddress, cfg.Server.Address)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)

	cfg = &Config{}
	err := cfg.FixupAndValidate()
	require.Error(t, err, "DataDir is required")

	cfg = &Config{}
	cfg.Server.DataDir = "relative/path"
	require.Error(t, cfg.FixupAndValidate())

	cfg = &Config{}
	cfg.Server.DataDir = t.TempDir()
	cfg.Logging = &Logging{Level: "LOUD"}
	require.Error(t, cfg.FixupAndValidate())
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("PORTFOLIOCTL_SERVER", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", cfg.Server)
	require.Equal(t, "online", cfg.Mode)

	cfg.Mode = "fallback"
	cfg.Token = "tok"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

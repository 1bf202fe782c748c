package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		VaultDir:       t.TempDir(),
		Username:       "alice",
		Token:          "t0ken-value",
		RepositoryName: "notes",
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultBranch, cfg.Branch)
	assert.Equal(t, DefaultCommitTemplate, cfg.CommitMessageTemplate)
	assert.Equal(t, DefaultAutoSyncMinutes, cfg.AutoSyncMinutes)
}

func TestValidate_VaultDir(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrNoVaultDir)

	cfg.VaultDir = filepath.Join(t.TempDir(), "does-not-exist")
	assert.Error(t, cfg.Validate())
}

func TestValidate_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := validConfig(t)
	rel, err := filepath.Rel(home, cfg.VaultDir)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Skip("temp dir not under home")
	}
	cfg.VaultDir = filepath.Join("~", rel)

	require.NoError(t, cfg.Validate())
	assert.True(t, filepath.IsAbs(cfg.VaultDir))
}

func TestValidate_AutoSyncRange(t *testing.T) {
	cfg := validConfig(t)
	cfg.AutoSyncMinutes = 4
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.AutoSyncMinutes = 121
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.AutoSyncMinutes = 60
	assert.NoError(t, cfg.Validate())
}

func TestIsConfigured(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsConfigured())

	for _, clear := range []func(*Config){
		func(c *Config) { c.Username = "" },
		func(c *Config) { c.Token = "" },
		func(c *Config) { c.RepositoryName = "" },
		func(c *Config) { c.Branch = "" },
	} {
		cfg := validConfig(t)
		require.NoError(t, cfg.Validate())
		clear(cfg)
		assert.False(t, cfg.IsConfigured())
	}
}

func TestExcludedLists(t *testing.T) {
	cfg := &Config{
		ExcludedFolders: ".trash\n\n  archive/old  \n",
		ExcludedFiles:   "*.pdf\nsecret.md",
	}

	assert.Equal(t, []string{".trash", "archive/old"}, cfg.ExcludedFolderList())
	assert.Equal(t, []string{"*.pdf", "secret.md"}, cfg.ExcludedFileList())

	empty := &Config{}
	assert.Empty(t, empty.ExcludedFolderList())
	assert.Empty(t, empty.ExcludedFileList())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")

	cfg := validConfig(t)
	cfg.ExcludedFolders = ".trash"
	cfg.LastSyncTimestamp = 1757900000000
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.VaultDir, loaded.VaultDir)
	assert.Equal(t, cfg.Token, loaded.Token)
	assert.Equal(t, cfg.ExcludedFolders, loaded.ExcludedFolders)
	assert.Equal(t, cfg.LastSyncTimestamp, loaded.LastSyncTimestamp)
	assert.Equal(t, path, loaded.Path)
}

func TestLogValueMasksToken(t *testing.T) {
	cfg := validConfig(t)
	rendered := cfg.LogValue().String()
	assert.NotContains(t, rendered, cfg.Token)
	assert.Contains(t, rendered, "alice")
}

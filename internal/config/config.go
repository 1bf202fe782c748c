package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vishal-go/GitSync/internal/utils"
)

const (
	DefaultBranch          = "main"
	DefaultCommitTemplate  = "vault sync: {{date}}"
	DefaultAutoSyncMinutes = 15

	minAutoSyncMinutes = 5
	maxAutoSyncMinutes = 120
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".gitsync", "config.json")
)

var (
	ErrNoVaultDir   = errors.New("config: vault dir missing")
	ErrNoCredential = errors.New("config: username or token missing")
	ErrNoRepository = errors.New("config: repository name missing")
)

// Config is the immutable per-run sync configuration. The engine receives
// it, never loads or mutates it; LastSyncTimestamp is written back by the
// caller after a successful operation.
type Config struct {
	VaultDir              string `json:"vault_dir"`
	Username              string `json:"username"`
	Token                 string `json:"token"`
	RepositoryName        string `json:"repository_name"`
	Branch                string `json:"branch"`
	APIBaseURL            string `json:"api_base_url,omitempty"`
	ExcludedFolders       string `json:"excluded_folders"`
	ExcludedFiles         string `json:"excluded_files"`
	CommitMessageTemplate string `json:"commit_message_template"`
	AutoSyncMinutes       int    `json:"auto_sync_interval_minutes"`
	LastSyncTimestamp     int64  `json:"last_sync_timestamp"`

	Path string `json:"-"`
}

// Validate normalizes paths and applies defaults. It does not touch the
// network.
func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return ErrNoVaultDir
	}

	vaultDir, err := utils.ResolvePath(c.VaultDir)
	if err != nil {
		return fmt.Errorf("config: resolve vault dir: %w", err)
	}
	c.VaultDir = vaultDir

	if !utils.DirExists(c.VaultDir) {
		return fmt.Errorf("config: vault dir does not exist: %s", c.VaultDir)
	}

	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.CommitMessageTemplate == "" {
		c.CommitMessageTemplate = DefaultCommitTemplate
	}
	if c.AutoSyncMinutes == 0 {
		c.AutoSyncMinutes = DefaultAutoSyncMinutes
	}
	if c.AutoSyncMinutes < minAutoSyncMinutes || c.AutoSyncMinutes > maxAutoSyncMinutes {
		return fmt.Errorf("config: auto sync interval must be within [%d,%d] minutes", minAutoSyncMinutes, maxAutoSyncMinutes)
	}

	return nil
}

// IsConfigured is a structural check that credentials, repository name and
// branch are all present. No network call.
func (c *Config) IsConfigured() bool {
	return c.Username != "" && c.Token != "" && c.RepositoryName != "" && c.Branch != ""
}

// ExcludedFolderList parses the newline-delimited folder exclusions.
func (c *Config) ExcludedFolderList() []string {
	return splitList(c.ExcludedFolders)
}

// ExcludedFileList parses the newline-delimited file name exclusions.
func (c *Config) ExcludedFileList() []string {
	return splitList(c.ExcludedFiles)
}

func splitList(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// LogValue keeps the token out of structured logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("vault_dir", c.VaultDir),
		slog.String("username", c.Username),
		slog.String("token", utils.MaskSecret(c.Token)),
		slog.String("repository", c.RepositoryName),
		slog.String("branch", c.Branch),
	)
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	return &cfg, nil
}

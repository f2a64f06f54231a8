package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout of one installation. Relative entries
// resolve against Root.
type Paths struct {
	Root              string `toml:"root"`
	ConfigDir         string `toml:"config_dir"`
	RawDir            string `toml:"raw_dir"`
	ArchiveDir        string `toml:"archive_dir"`
	TempDir           string `toml:"temp_dir"`
	ProcessedDir      string `toml:"processed_dir"`
	LogDir            string `toml:"log_dir"`
	ShopDirectoryFile string `toml:"shop_directory_file"`
	LedgerPath        string `toml:"ledger_path"`
}

// Intake contains configuration for the intake scanner.
type Intake struct {
	Extensions []string `toml:"extensions"`
}

// Archive contains configuration for archival moves.
type Archive struct {
	MaxAttempts    int `toml:"max_attempts"`
	RetryBackoffMS int `toml:"retry_backoff_ms"`
	SettleMS       int `toml:"settle_ms"`
}

// Shops contains configuration for the shop directory loader.
type Shops struct {
	Platform string `toml:"platform"`
}

// Columns contains configuration for header alias resolution.
type Columns struct {
	// AliasesPath points at an optional YAML file extending the built-in alias
	// tables. Empty uses the built-in tables only.
	AliasesPath string `toml:"aliases_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string `toml:"format"`
	Level          string `toml:"level"`
	ConsoleLevel   string `toml:"console_level"`
	RetentionHours int    `toml:"retention_hours"`
}

// Config encapsulates all configuration values for pendingorders.
//
// Configuration sections by subsystem:
//   - Paths: root directory and the intake/archive/temp/processed/log layout
//   - Intake: which file extensions count as spreadsheets
//   - Archive: retry policy for archival moves
//   - Shops: shop directory filtering
//   - Columns: header alias overrides
//   - Logging: log format, levels, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Intake  Intake  `toml:"intake"`
	Archive Archive `toml:"archive"`
	Shops   Shops   `toml:"shops"`
	Columns Columns `toml:"columns"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the per-user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pendingorders/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Normalize resolves paths and fills blank fields with defaults. Load calls it;
// callers building a Config by hand (tests, embedding) call it themselves.
func (c *Config) Normalize() error {
	return c.normalize()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("pendingorders.toml")
	if err != nil {
		return "", false, err
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories a run writes into. The
// config directory is not created: a missing shop directory is fatal and must
// surface as such.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RawDir, c.Paths.ArchiveDir, c.Paths.TempDir, c.Paths.ProcessedDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.LedgerPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	return nil
}

// ShopDirectoryPath returns the absolute path of the shop directory source.
func (c *Config) ShopDirectoryPath() string {
	return filepath.Join(c.Paths.ConfigDir, c.Paths.ShopDirectoryFile)
}

// LockPath returns the path of the advisory run lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "pendingorders.lock")
}

// LogRetention returns the maximum age of run logs.
func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.Logging.RetentionHours) * time.Hour
}

// RetryBackoff returns the base archival backoff; attempt n waits n times this.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Archive.RetryBackoffMS) * time.Millisecond
}

// SettleDelay returns the pause between copying and verifying an archived file.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Archive.SettleMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// resolveUnder expands value and anchors relative results at root.
func resolveUnder(root, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if strings.HasPrefix(value, "~") || filepath.IsAbs(value) {
		return expandPath(value)
	}
	return expandPath(filepath.Join(root, value))
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

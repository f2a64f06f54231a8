package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeArchive()
	c.normalizeShops()
	if err := c.normalizeColumns(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("PENDINGORDERS_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Root = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.Root) == "" {
		c.Paths.Root = defaultRoot
	}
	root, err := expandPath(c.Paths.Root)
	if err != nil {
		return fmt.Errorf("paths.root: %w", err)
	}
	c.Paths.Root = root

	dirs := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.config_dir", &c.Paths.ConfigDir, defaultConfigDir},
		{"paths.raw_dir", &c.Paths.RawDir, defaultRawDir},
		{"paths.archive_dir", &c.Paths.ArchiveDir, defaultArchiveDir},
		{"paths.temp_dir", &c.Paths.TempDir, defaultTempDir},
		{"paths.processed_dir", &c.Paths.ProcessedDir, defaultProcessedDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.ledger_path", &c.Paths.LedgerPath, defaultLedgerPath},
	}
	for _, dir := range dirs {
		if strings.TrimSpace(*dir.value) == "" {
			*dir.value = dir.fallback
		}
		resolved, err := resolveUnder(root, *dir.value)
		if err != nil {
			return fmt.Errorf("%s: %w", dir.key, err)
		}
		*dir.value = resolved
	}

	c.Paths.ShopDirectoryFile = strings.TrimSpace(c.Paths.ShopDirectoryFile)
	if c.Paths.ShopDirectoryFile == "" {
		c.Paths.ShopDirectoryFile = defaultShopDirectoryFile
	}
	return nil
}

func (c *Config) normalizeIntake() {
	seen := make(map[string]struct{}, len(c.Intake.Extensions))
	exts := make([]string, 0, len(c.Intake.Extensions))
	for _, ext := range c.Intake.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".xlsx"}
	}
	c.Intake.Extensions = exts
}

func (c *Config) normalizeArchive() {
	if c.Archive.MaxAttempts <= 0 {
		c.Archive.MaxAttempts = defaultArchiveAttempts
	}
	if c.Archive.RetryBackoffMS < 0 {
		c.Archive.RetryBackoffMS = 0
	}
	if c.Archive.SettleMS < 0 {
		c.Archive.SettleMS = 0
	}
}

func (c *Config) normalizeShops() {
	c.Shops.Platform = strings.TrimSpace(c.Shops.Platform)
	if c.Shops.Platform == "" {
		c.Shops.Platform = defaultShopPlatform
	}
}

func (c *Config) normalizeColumns() error {
	path := strings.TrimSpace(c.Columns.AliasesPath)
	if path == "" {
		c.Columns.AliasesPath = ""
		return nil
	}
	if !strings.HasPrefix(path, "~") && !filepath.IsAbs(path) {
		path = filepath.Join(c.Paths.ConfigDir, path)
	}
	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("columns.aliases_path: %w", err)
	}
	c.Columns.AliasesPath = resolved
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.ConsoleLevel = strings.ToLower(strings.TrimSpace(c.Logging.ConsoleLevel))
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = defaultConsoleLevel
	}
	if c.Logging.RetentionHours < 0 {
		c.Logging.RetentionHours = 0
	}
}

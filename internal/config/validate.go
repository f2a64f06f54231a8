package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.ContainsAny(c.Paths.ShopDirectoryFile, `/\`) {
		return errors.New("paths.shop_directory_file must be a file name inside paths.config_dir")
	}
	raw := filepath.Clean(c.Paths.RawDir)
	for key, dir := range map[string]string{
		"paths.archive_dir":   c.Paths.ArchiveDir,
		"paths.processed_dir": c.Paths.ProcessedDir,
		"paths.temp_dir":      c.Paths.TempDir,
	} {
		dir = filepath.Clean(dir)
		switch {
		case dir == raw:
			return fmt.Errorf("%s must differ from paths.raw_dir", key)
		case within(raw, dir):
			return fmt.Errorf("%s must not be inside paths.raw_dir", key)
		case within(dir, raw):
			return fmt.Errorf("paths.raw_dir must not be inside %s", key)
		}
	}
	return nil
}

// within reports whether path lies strictly below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// supportedExtensions are the workbook formats the extractor can open.
var supportedExtensions = map[string]bool{".xlsx": true, ".xlsm": true}

func (c *Config) validateIntake() error {
	for _, ext := range c.Intake.Extensions {
		if !supportedExtensions[strings.ToLower(ext)] {
			return fmt.Errorf("intake.extensions: unsupported value %q (use .xlsx or .xlsm)", ext)
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	if c.Archive.MaxAttempts > 20 {
		return errors.New("archive.max_attempts must be 20 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	for key, level := range map[string]string{"logging.level": c.Logging.Level, "logging.console_level": c.Logging.ConsoleLevel} {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("%s: unsupported value %q", key, level)
		}
	}
	return nil
}

package testsupport

import (
	"os"
	"testing"

	"pendingorders/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test, with
// every working directory created (including config/) and archival retries
// kept fast. It applies any provided options before normalizing.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Root = base
	cfgVal.Archive.RetryBackoffMS = 1
	cfgVal.Archive.SettleMS = 0
	cfgVal.Logging.ConsoleLevel = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.ConfigDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	return builder.cfg
}

// WithArchiveAttempts overrides archive.max_attempts.
func WithArchiveAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.MaxAttempts = n
	}
}

// WithExtensions overrides intake.extensions.
func WithExtensions(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Intake.Extensions = exts
	}
}

// WithAliasesPath points columns.aliases_path at a file relative to config/.
func WithAliasesPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Columns.AliasesPath = path
	}
}

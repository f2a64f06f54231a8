package config

const (
	defaultRoot              = "."
	defaultConfigDir         = "config"
	defaultRawDir            = "data_raw"
	defaultArchiveDir        = "data_archive"
	defaultTempDir           = "temp"
	defaultProcessedDir      = "data_processed"
	defaultLogDir            = "logs"
	defaultShopDirectoryFile = "A02_Shops_Master - Shops_Master.csv"
	defaultLedgerPath        = "data_archive/.ledger.db"
	defaultArchiveAttempts   = 3
	defaultRetryBackoffMS    = 500
	defaultSettleMS          = 100
	defaultShopPlatform      = "Shopee"
	defaultLogFormat         = "console"
	defaultLogLevel          = "debug"
	defaultConsoleLevel      = "warn"
	defaultRetentionHours    = 48
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Root:              defaultRoot,
			ConfigDir:         defaultConfigDir,
			RawDir:            defaultRawDir,
			ArchiveDir:        defaultArchiveDir,
			TempDir:           defaultTempDir,
			ProcessedDir:      defaultProcessedDir,
			LogDir:            defaultLogDir,
			ShopDirectoryFile: defaultShopDirectoryFile,
			LedgerPath:        defaultLedgerPath,
		},
		Intake: Intake{
			Extensions: []string{".xlsx"},
		},
		Archive: Archive{
			MaxAttempts:    defaultArchiveAttempts,
			RetryBackoffMS: defaultRetryBackoffMS,
			SettleMS:       defaultSettleMS,
		},
		Shops: Shops{
			Platform: defaultShopPlatform,
		},
		Logging: Logging{
			Format:         defaultLogFormat,
			Level:          defaultLogLevel,
			ConsoleLevel:   defaultConsoleLevel,
			RetentionHours: defaultRetentionHours,
		},
	}
}

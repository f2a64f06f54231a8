// Package config loads, normalizes, and validates pendingorders configuration.
//
// It supplies repository defaults, resolves every directory against a single
// root (which may come from PENDINGORDERS_ROOT), expands tilde shortcuts, and
// reads TOML files. The Config type centralizes every knob the batch run and the
// CLI need so the intake, archive, temp, processed, and log directories are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config

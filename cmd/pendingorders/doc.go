// Package main hosts the pendingorders CLI entrypoint and command graph.
//
// The root command runs one batch over the configured root. Subcommands
// inspect run history, list or reindex the archive, and scaffold or validate
// configuration. Heavy lifting lives in internal packages; commands here only
// resolve configuration and render results.
package main

// Package app builds the dependency graphs for the daemon and the CLI
// and loads the daemon's TOML configuration.
package app

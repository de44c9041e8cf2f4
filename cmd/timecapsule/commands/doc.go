// Package commands defines the timecapsule CLI and wires dependencies
// for subcommands.
//
// Commands
//
//   - seal        Encrypt a letter, split its key, and store it sealed
//   - status      Show a share link's unlock state and countdown
//   - open        Unlock a letter with its share link and unlock code
//   - recover     Open a letter with the recovery-kit backup share
//   - regenerate  Mint a new unlock code for an unopened letter
//   - revoke      Permanently disable the current share link
//   - rotate      Replace the current share link with a fresh one
//   - cancel      Permanently withdraw an unopened letter
//   - delete      Remove a letter and its blobs entirely
//
// # Implementation
//
// The root command builds the dependency graph (vault client, blob
// store, seal pipeline) before any subcommand runs, so handlers share
// one app context.
package commands

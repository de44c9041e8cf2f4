// Package vault is the HTTP surface of the letter vault: the server
// handlers mounted by the daemon and the thin JSON client used by the
// CLI.
//
// The server surfaces only the protocol error codes (not_found,
// canceled, revoked, rotated, not_yet, ...); client-local decrypt
// failures never appear here. Plaintext never crosses this boundary in
// either direction.
package vault

// Package secretshare splits the master key into the three-share,
// two-required structure used by the unlock protocol.
//
// The scheme is a fixed dual-control pattern, not general n-of-m secret
// sharing: the client and backup shares are independent random keys,
// and the server share carries the master key AEAD-wrapped once under a
// key derived from each of them. Only the pairs (client, server) and
// (backup, server) reconstruct anything, which makes the server share
// the sole choke point for time-lock enforcement. Combine takes the
// server share as its first argument so the "server share always
// required" rule is enforced by the signature, not by documentation.
package secretshare

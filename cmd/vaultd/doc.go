// vaultd is the letter vault daemon: it stores sealed letters, runs
// the share-link state machine and the time gate, and serves the
// resolve/open protocol over HTTP. It holds no key material capable of
// decrypting anything on its own.
package main

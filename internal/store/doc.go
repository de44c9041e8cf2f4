// Package store persists letters and share tokens in a bbolt database
// and ciphertext blobs in a flat file directory.
//
// Every state transition (seal, cancel, open, regenerate, token
// activate/revoke/resolve) runs inside a single bbolt Update
// transaction, so the check and the write it guards are atomic:
// concurrent callers race safely and exactly one open transition ever
// reports first-open. There is no application-level locking.
//
// Records are CBOR-encoded. The store never interprets ServerShare,
// envelope contents or blob bytes.
package store

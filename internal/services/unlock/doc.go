// Package unlock is the single point deciding whether a letter's
// server share may be disclosed, plus the exactly-once open transition
// and the backup-share recovery path.
//
// The time gate uses server wall-clock time exclusively. Disclose is
// idempotent; only Open carries one-time semantics, and its first-open
// signal comes from the store's conditional update, never from a
// read-then-write.
package unlock

package domain

import (
	"context"
	"time"
)

// Clock supplies server wall-clock time. Client-supplied timestamps are
// never trusted anywhere in this module.
type Clock func() time.Time

// LetterStore persists sealed letters. Every mutating method is a
// single atomic conditional update: concurrent callers race safely
// without application-level locking.
type LetterStore interface {
	// PutSealed stores a letter atomically with its ciphertext refs,
	// server share and envelope, moving it draft -> sealed.
	PutSealed(l Letter) error

	// Get returns the stored record, ErrNotFound if absent. Callers
	// other than the unlock gate must not transmit ServerShare.
	Get(id LetterID) (Letter, error)

	// Cancel is terminal and blocks all later access. Fails with
	// ErrAlreadyOpened once the letter has been opened.
	Cancel(id LetterID) error

	// Delete removes the record and returns it so the caller can clean
	// up the referenced blobs.
	Delete(id LetterID) (Letter, error)

	// MarkOpened flips IsUnlocked false -> true at most once. A
	// canceled letter is rejected first, then the time gate, then the
	// conditional flip; the returned bool is true for exactly one
	// caller ever.
	MarkOpened(id LetterID, now time.Time) (bool, error)

	// RegenerateEnvelope replaces the envelope wholesale, only if the
	// letter is unopened and has never been regenerated.
	RegenerateEnvelope(id LetterID, env Envelope, now time.Time) error
}

// TokenStore persists share tokens and enforces the one-active-token
// invariant. Demoting the old token and activating the new one are
// atomic with respect to Resolve.
type TokenStore interface {
	// Activate mints token as the letter's active token, demoting any
	// existing active token to rotated with ReplacedByToken set. The
	// demoted token value is returned, empty if there was none.
	Activate(letterID LetterID, token Token, now time.Time) (Token, error)

	// Revoke demotes the active token, if any. Idempotent.
	Revoke(letterID LetterID, reason string, now time.Time) (bool, error)

	// Resolve returns the record for an active token, bumping its view
	// telemetry. Terminal tokens fail with ErrTokenRevoked,
	// ErrTokenRotated or ErrNotFound.
	Resolve(token Token, now time.Time) (ShareToken, error)

	// Active returns the letter's active token, if one exists.
	Active(letterID LetterID) (ShareToken, bool, error)
}

// BlobStore reads and writes opaque ciphertext blobs by reference. The
// core never inspects blob bytes.
type BlobStore interface {
	Put(ref string, data []byte) error
	Get(ref string) ([]byte, error)
	Delete(ref string) error
}

// VaultClient is the recipient/author view of the vault server.
type VaultClient interface {
	Seal(ctx context.Context, l Letter) (Token, error)
	Resolve(ctx context.Context, token Token) (Disclosure, error)
	Open(ctx context.Context, token Token) (OpenResult, error)
	Revoke(ctx context.Context, id LetterID, reason string) (RevokeResult, error)
	Rotate(ctx context.Context, id LetterID) (Token, error)
	Regenerate(ctx context.Context, id LetterID, env Envelope) error
	Cancel(ctx context.Context, id LetterID) error
	Delete(ctx context.Context, id LetterID) error
}

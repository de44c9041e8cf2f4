package domain

import "errors"

// Failure taxonomy. Callers classify with errors.Is; nothing in this
// module ever matches on error message text.
var (
	// ErrAuthFailure means a wrong unlock code or backup share. It is
	// detectable only as an AEAD tag mismatch, so callers must map that
	// mismatch here rather than returning a generic failure. Never
	// logged together with key material.
	ErrAuthFailure = errors.New("unlock code or share incorrect")

	// ErrIntegrityFailure means a malformed or incompatible share or
	// envelope, rejected on structural grounds before any AEAD work.
	// Presented to users identically to ErrAuthFailure, logged
	// distinctly.
	ErrIntegrityFailure = errors.New("malformed share material")

	// ErrTimeLockNotReached is the normal pre-gate state, not a fault.
	ErrTimeLockNotReached = errors.New("time lock not reached")

	// ErrAlreadyOpened rejects regeneration of an opened letter.
	ErrAlreadyOpened = errors.New("letter already opened")

	// ErrAlreadyRegenerated enforces the one-regeneration-per-lifetime
	// policy.
	ErrAlreadyRegenerated = errors.New("unlock code already regenerated")

	// ErrCanceled rejects any access to a canceled letter.
	ErrCanceled = errors.New("letter canceled")

	// ErrNotFound covers unknown letters and unknown tokens.
	ErrNotFound = errors.New("not found")

	// ErrTokenRevoked and ErrTokenRotated are the terminal token
	// classifications, distinct from a plain miss so the caller can
	// direct the recipient back to the sender.
	ErrTokenRevoked = errors.New("share link revoked")
	ErrTokenRotated = errors.New("share link rotated")
)

// TransientError wraps a network or storage fault that is safe to
// retry. No core state changes on a read failure.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient reports whether err is a retryable infrastructure fault
// rather than a protocol outcome.
func Transient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrorCode maps a failure to the wire code surfaced by the vault
// server. Client-local failures (auth, integrity) deliberately have no
// code: they never reach the server.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenRotated):
		return "rotated"
	case errors.Is(err, ErrTimeLockNotReached):
		return "not_yet"
	case errors.Is(err, ErrAlreadyOpened):
		return "already_opened"
	case errors.Is(err, ErrAlreadyRegenerated):
		return "already_regenerated"
	default:
		return "internal"
	}
}

// FromErrorCode is the client-side inverse of ErrorCode.
func FromErrorCode(code string) error {
	switch code {
	case "not_found":
		return ErrNotFound
	case "canceled":
		return ErrCanceled
	case "revoked":
		return ErrTokenRevoked
	case "rotated":
		return ErrTokenRotated
	case "not_yet":
		return ErrTimeLockNotReached
	case "already_opened":
		return ErrAlreadyOpened
	case "already_regenerated":
		return ErrAlreadyRegenerated
	default:
		return errors.New("vault error: " + code)
	}
}

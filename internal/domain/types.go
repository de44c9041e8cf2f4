package domain

import "time"

// LetterID identifies a sealed letter. Opaque to everything but the stores.
type LetterID string

// Token is an opaque access-link value granting resolution of one letter.
type Token string

// LetterStatus is the author-facing lifecycle state of a letter.
type LetterStatus string

const (
	StatusDraft    LetterStatus = "draft"
	StatusSealed   LetterStatus = "sealed"
	StatusCanceled LetterStatus = "canceled"
)

// TokenStatus is the lifecycle state of a share token. Revoked and
// rotated are terminal; a token value never becomes active again.
type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenRevoked TokenStatus = "revoked"
	TokenRotated TokenStatus = "rotated"
)

// Envelope is the password-wrapped client share together with the KDF
// parameters needed to unwrap it. The salt and iteration count are
// public parameters; only the unlock code is secret. Envelopes are
// immutable once issued; regeneration replaces them wholesale.
type Envelope struct {
	WrappedClientShare []byte `json:"wrappedClientShare"`
	IV                 []byte `json:"iv"`
	Salt               []byte `json:"salt"`
	KDF                string `json:"kdf"`
	KDFIters           int    `json:"kdfIters"`
}

// Letter is the persisted record of a sealed message. The plaintext
// never appears here: CiphertextRef and AudioRef point into an opaque
// blob store, and ServerShare alone reveals nothing about the master
// key.
type Letter struct {
	ID            LetterID
	CiphertextRef string
	IV            []byte
	AudioRef      string // empty when the letter carries no audio
	AudioIV       []byte
	UnlockAt      *time.Time // nil means no time gate
	Status        LetterStatus
	IsUnlocked    bool
	UnlockedAt    *time.Time
	ServerShare   []byte
	Envelope      Envelope

	// UnlockCodeRegeneratedAt is set at most once, and never after the
	// letter has been opened.
	UnlockCodeRegeneratedAt *time.Time

	CreatedAt time.Time
}

// ShareToken is the record behind one access link. ViewCount and
// LastAccessedAt are telemetry only and carry no security meaning.
type ShareToken struct {
	Token           Token
	LetterID        LetterID
	Status          TokenStatus
	ReplacedByToken Token // set when Status is rotated
	ViewCount       int64
	LastAccessedAt  *time.Time
	RevokedAt       *time.Time
	RevokeReason    string
	CreatedAt       time.Time
}

// Disclosure is what the unlock gate releases for a resolved token.
// ServerShare is non-nil iff the time gate has passed; the envelope is
// always released so the recipient can pre-validate their unlock code
// locally only after the share arrives, never earlier.
type Disclosure struct {
	CanUnlock   bool       `json:"canUnlock"`
	UnlockAt    *time.Time `json:"unlockAt,omitempty"`
	Envelope    Envelope   `json:"envelope"`
	ServerShare []byte     `json:"serverShare,omitempty"`

	// Released only once CanUnlock is true.
	CiphertextRef string `json:"ciphertextRef,omitempty"`
	IV            []byte `json:"iv,omitempty"`
	AudioRef      string `json:"audioRef,omitempty"`
	AudioIV       []byte `json:"audioIV,omitempty"`
}

// OpenResult reports the outcome of the exactly-once open transition.
type OpenResult struct {
	IsFirstOpen bool `json:"isFirstOpen"`
}

// RevokeResult reports whether a revocation found an active token to
// demote. Revoking with no active token is not an error.
type RevokeResult struct {
	WasActive bool `json:"wasActive"`
}

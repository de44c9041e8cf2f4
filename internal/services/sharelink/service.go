package sharelink

import (
	"crypto/rand"
	"encoding/base64"

	"gopkg.in/op/go-logging.v1"

	"timecapsule/internal/domain"
)

// Service is the access-link registry: it mints, revokes, rotates and
// resolves share tokens while the store keeps the one-active-token
// invariant atomic.
type Service struct {
	letters domain.LetterStore
	tokens  domain.TokenStore
	clock   domain.Clock
	log     *logging.Logger
}

// New returns a registry over the given stores. clock must be server
// wall-clock time.
func New(letters domain.LetterStore, tokens domain.TokenStore, clock domain.Clock, log *logging.Logger) *Service {
	return &Service{letters: letters, tokens: tokens, clock: clock, log: log}
}

// NewToken mints an opaque 256-bit token value.
func NewToken() (domain.Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return domain.Token(base64.RawURLEncoding.EncodeToString(buf)), nil
}

// Create mints a new active token for the letter. Any existing active
// token is demoted to rotated in the same store transaction, so a
// second Create behaves exactly like Rotate and an orphaned
// floating-active token can never exist.
func (s *Service) Create(letterID domain.LetterID) (domain.Token, error) {
	l, err := s.letters.Get(letterID)
	if err != nil {
		return "", err
	}
	if l.Status == domain.StatusCanceled {
		return "", domain.ErrCanceled
	}

	token, err := NewToken()
	if err != nil {
		return "", err
	}
	replaced, err := s.tokens.Activate(letterID, token, s.clock())
	if err != nil {
		return "", err
	}
	if replaced != "" {
		s.log.Noticef("letter %s: rotated share link", letterID)
	} else {
		s.log.Noticef("letter %s: minted share link", letterID)
	}
	return token, nil
}

// Revoke demotes the letter's active token. Idempotent: revoking with
// no active token succeeds with WasActive=false.
func (s *Service) Revoke(letterID domain.LetterID, reason string) (domain.RevokeResult, error) {
	if _, err := s.letters.Get(letterID); err != nil {
		return domain.RevokeResult{}, err
	}
	wasActive, err := s.tokens.Revoke(letterID, reason, s.clock())
	if err != nil {
		return domain.RevokeResult{}, err
	}
	if wasActive {
		s.log.Noticef("letter %s: revoked share link", letterID)
	}
	return domain.RevokeResult{WasActive: wasActive}, nil
}

// Rotate replaces the active token with a fresh one atomically.
func (s *Service) Rotate(letterID domain.LetterID) (domain.Token, error) {
	return s.Create(letterID)
}

// Resolve returns the token record for an active token, bumping its
// view telemetry. Terminal tokens classify distinctly (revoked,
// rotated, not_found) so the recipient can be directed to the sender
// instead of silently falling back to a stale link.
func (s *Service) Resolve(token domain.Token) (domain.ShareToken, error) {
	return s.tokens.Resolve(token, s.clock())
}

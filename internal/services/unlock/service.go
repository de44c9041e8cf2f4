package unlock

import (
	"time"

	"gopkg.in/op/go-logging.v1"

	"timecapsule/internal/domain"
	"timecapsule/internal/secretshare"
)

// Observer is notified exactly once when a letter is first opened.
// Delivery (owner notification, email, push) is an external
// collaborator; gating on first-open here is what prevents duplicates.
type Observer interface {
	FirstOpened(letterID domain.LetterID, at time.Time)
}

// Service is the unlock gate. Disclose is the only code path in the
// module permitted to read and transmit a letter's server share.
type Service struct {
	letters  domain.LetterStore
	tokens   domain.TokenStore
	clock    domain.Clock
	observer Observer // optional
	log      *logging.Logger
}

// New returns an unlock gate over the given stores. clock must be
// server wall-clock time; client-supplied timestamps are never
// consulted.
func New(letters domain.LetterStore, tokens domain.TokenStore, clock domain.Clock, observer Observer, log *logging.Logger) *Service {
	return &Service{letters: letters, tokens: tokens, clock: clock, observer: observer, log: log}
}

// CanUnlock reports whether the time gate has passed. A letter without
// an unlock instant is always unlockable.
func CanUnlock(l domain.Letter, now time.Time) bool {
	return l.UnlockAt == nil || !now.Before(*l.UnlockAt)
}

// Disclose resolves a token and releases what the gate permits: the
// envelope always, the server share and ciphertext references only once
// the time gate has passed. Idempotent and side-effect-free apart from
// view telemetry; safe to repeat on page reload.
func (s *Service) Disclose(token domain.Token) (domain.Disclosure, error) {
	now := s.clock()

	st, err := s.tokens.Resolve(token, now)
	if err != nil {
		return domain.Disclosure{}, err
	}
	l, err := s.letters.Get(st.LetterID)
	if err != nil {
		return domain.Disclosure{}, err
	}
	if l.Status == domain.StatusCanceled {
		return domain.Disclosure{}, domain.ErrCanceled
	}

	d := domain.Disclosure{
		Envelope: l.Envelope,
		UnlockAt: l.UnlockAt,
	}
	if !CanUnlock(l, now) {
		// Pre-gate: countdown state. The server share stays withheld.
		return d, nil
	}
	d.CanUnlock = true
	d.ServerShare = l.ServerShare
	d.CiphertextRef = l.CiphertextRef
	d.IV = l.IV
	d.AudioRef = l.AudioRef
	d.AudioIV = l.AudioIV
	return d, nil
}

// Open performs the exactly-once open transition for the letter behind
// token. Repeat calls succeed with IsFirstOpen=false. It never reads or
// returns plaintext or ciphertext.
func (s *Service) Open(token domain.Token) (domain.OpenResult, error) {
	now := s.clock()

	st, err := s.tokens.Resolve(token, now)
	if err != nil {
		return domain.OpenResult{}, err
	}
	first, err := s.letters.MarkOpened(st.LetterID, now)
	if err != nil {
		return domain.OpenResult{}, err
	}
	if first {
		s.log.Noticef("letter %s: first open", st.LetterID)
		if s.observer != nil {
			s.observer.FirstOpened(st.LetterID, now)
		}
	}
	return domain.OpenResult{IsFirstOpen: first}, nil
}

// Regenerate replaces the letter's envelope after the author lost the
// unlock code. Allowed at most once per letter lifetime and never after
// the letter has been opened.
func (s *Service) Regenerate(letterID domain.LetterID, env domain.Envelope) error {
	if err := s.letters.RegenerateEnvelope(letterID, env, s.clock()); err != nil {
		return err
	}
	s.log.Noticef("letter %s: unlock code regenerated", letterID)
	return nil
}

// Recover reconstructs the master key from the backup share and a
// disclosed server share. The server share is obtained through the same
// Disclose gate as the primary path, so the time lock holds identically;
// the backup share itself never reaches the server.
func Recover(serverShare, backupShare []byte) ([]byte, error) {
	return secretshare.Combine(serverShare, backupShare)
}

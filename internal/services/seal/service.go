package seal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/op/go-logging.v1"

	"timecapsule/internal/crypto"
	"timecapsule/internal/domain"
	"timecapsule/internal/envelope"
	"timecapsule/internal/secretshare"
)

// Request is what the author seals.
type Request struct {
	Text     []byte
	Audio    []byte // optional
	UnlockAt *time.Time
}

// Result is everything the author must keep after sealing. The unlock
// code and backup share exist only here; neither is ever transmitted to
// or stored by the server in usable form.
type Result struct {
	LetterID    domain.LetterID
	Token       domain.Token
	UnlockCode  string
	BackupShare []byte
	RecoveryKit string
}

// Opened is a decrypted letter.
type Opened struct {
	Text        []byte
	Audio       []byte
	IsFirstOpen bool
}

// NotYetError carries the unlock instant for countdown rendering. It is
// the normal pre-gate state, not a fault.
type NotYetError struct {
	UnlockAt *time.Time
}

func (e *NotYetError) Error() string {
	if e.UnlockAt == nil {
		return domain.ErrTimeLockNotReached.Error()
	}
	return fmt.Sprintf("time lock not reached; opens %s", e.UnlockAt.Format(time.RFC3339))
}
func (e *NotYetError) Unwrap() error { return domain.ErrTimeLockNotReached }

// Service is the author/recipient-side pipeline. All cryptography runs
// locally: the vault only ever sees ciphertext, the server share and
// the envelope.
type Service struct {
	vault  domain.VaultClient
	blobs  domain.BlobStore
	params crypto.Params
	log    *logging.Logger
}

// New returns a client pipeline using the given vault and blob store.
func New(vault domain.VaultClient, blobs domain.BlobStore, params crypto.Params, log *logging.Logger) *Service {
	return &Service{vault: vault, blobs: blobs, params: params, log: log}
}

// Seal encrypts the letter under a fresh master key, splits the key,
// wraps the client share under a new unlock code, persists everything
// through the vault, and mints the first share link.
func (s *Service) Seal(ctx context.Context, req Request) (Result, error) {
	if len(req.Text) == 0 {
		return Result{}, fmt.Errorf("seal: empty letter")
	}

	masterKey, err := crypto.NewKey()
	if err != nil {
		return Result{}, err
	}
	defer crypto.Zero(masterKey)

	ct, iv, err := crypto.Encrypt(req.Text, masterKey)
	if err != nil {
		return Result{}, err
	}

	var audioCT, audioIV []byte
	if len(req.Audio) > 0 {
		// Audio gets an independent sub-key so text and audio
		// decryption fail independently.
		audioKey := crypto.DeriveSubKey(masterKey, crypto.LabelAudio)
		audioCT, audioIV, err = crypto.Encrypt(req.Audio, audioKey)
		crypto.Zero(audioKey)
		if err != nil {
			return Result{}, err
		}
	}

	shares, err := secretshare.Split(masterKey)
	if err != nil {
		return Result{}, err
	}
	code, err := envelope.NewUnlockCode()
	if err != nil {
		return Result{}, err
	}
	env, err := envelope.Create(shares.Client, code, s.params)
	if err != nil {
		return Result{}, err
	}

	id := domain.LetterID(uuid.NewString())
	textRef := string(id) + "-text.bin"
	if err := s.blobs.Put(textRef, ct); err != nil {
		return Result{}, err
	}
	audioRef := ""
	if audioCT != nil {
		audioRef = string(id) + "-audio.bin"
		if err := s.blobs.Put(audioRef, audioCT); err != nil {
			return Result{}, err
		}
	}

	letter := domain.Letter{
		ID:            id,
		CiphertextRef: textRef,
		IV:            iv,
		AudioRef:      audioRef,
		AudioIV:       audioIV,
		UnlockAt:      req.UnlockAt,
		ServerShare:   shares.Server,
		Envelope:      env,
		CreatedAt:     time.Now().UTC(),
	}
	token, err := s.vault.Seal(ctx, letter)
	if err != nil {
		return Result{}, err
	}

	s.log.Noticef("letter %s: sealed", id)
	return Result{
		LetterID:    id,
		Token:       token,
		UnlockCode:  code,
		BackupShare: shares.Backup,
		RecoveryKit: RecoveryKit(id, shares.Backup),
	}, nil
}

// Open resolves a share link, unwraps the envelope with the unlock
// code, reconstructs the master key, decrypts the letter, and then
// marks it opened. A wrong code fails locally with
// domain.ErrAuthFailure before the open transition; the vault never
// learns about it.
func (s *Service) Open(ctx context.Context, token domain.Token, unlockCode string) (Opened, error) {
	d, err := s.vault.Resolve(ctx, token)
	if err != nil {
		return Opened{}, err
	}
	if !d.CanUnlock {
		return Opened{}, &NotYetError{UnlockAt: d.UnlockAt}
	}

	clientShare, err := envelope.Open(d.Envelope, unlockCode)
	if err != nil {
		return Opened{}, err
	}
	masterKey, err := secretshare.Combine(d.ServerShare, clientShare)
	if err != nil {
		return Opened{}, err
	}
	defer crypto.Zero(masterKey)

	return s.decryptAndMark(ctx, token, d, masterKey)
}

// Recover is the emergency path: the author's backup share stands in
// for the lost unlock code. The server share still comes through the
// same gate, so the time lock holds identically.
func (s *Service) Recover(ctx context.Context, token domain.Token, backupShare []byte) (Opened, error) {
	d, err := s.vault.Resolve(ctx, token)
	if err != nil {
		return Opened{}, err
	}
	if !d.CanUnlock {
		return Opened{}, &NotYetError{UnlockAt: d.UnlockAt}
	}

	masterKey, err := secretshare.Combine(d.ServerShare, backupShare)
	if err != nil {
		return Opened{}, err
	}
	defer crypto.Zero(masterKey)

	return s.decryptAndMark(ctx, token, d, masterKey)
}

// Regenerate mints a new unlock code for an unopened letter and
// replaces its envelope. The prior code stops working the instant the
// vault accepts the new envelope.
//
// The new envelope wraps the backup share from the recovery kit: it is
// the one secret the author still holds that the server share can pair
// with, so the unlock path works unchanged and the time gate is never
// consulted early. Allowed once per letter lifetime.
func (s *Service) Regenerate(ctx context.Context, letterID domain.LetterID, backupShare []byte) (string, error) {
	code, err := envelope.NewUnlockCode()
	if err != nil {
		return "", err
	}
	env, err := envelope.Create(backupShare, code, s.params)
	if err != nil {
		return "", err
	}
	if err := s.vault.Regenerate(ctx, letterID, env); err != nil {
		return "", err
	}
	s.log.Noticef("letter %s: envelope regenerated", letterID)
	return code, nil
}

func (s *Service) decryptAndMark(ctx context.Context, token domain.Token, d domain.Disclosure, masterKey []byte) (Opened, error) {
	ct, err := s.blobs.Get(d.CiphertextRef)
	if err != nil {
		return Opened{}, err
	}
	text, err := crypto.Decrypt(ct, d.IV, masterKey)
	if err != nil {
		return Opened{}, err
	}

	var audio []byte
	if d.AudioRef != "" {
		audioCT, err := s.blobs.Get(d.AudioRef)
		if err != nil {
			return Opened{}, err
		}
		audioKey := crypto.DeriveSubKey(masterKey, crypto.LabelAudio)
		audio, err = crypto.Decrypt(audioCT, d.AudioIV, audioKey)
		crypto.Zero(audioKey)
		if err != nil {
			return Opened{}, err
		}
	}

	// Only after a successful local decrypt does the one-time
	// transition fire.
	res, err := s.vault.Open(ctx, token)
	if err != nil {
		return Opened{}, err
	}
	return Opened{Text: text, Audio: audio, IsFirstOpen: res.IsFirstOpen}, nil
}

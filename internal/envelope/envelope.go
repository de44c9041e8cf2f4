// Package envelope produces and consumes the password-wrapped client
// share. The envelope is the only artifact the server stores that the
// unlock code can open, and the server cannot unwrap it: the salt and
// iteration count it carries are public parameters, not secrets.
package envelope

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"timecapsule/internal/crypto"
	"timecapsule/internal/domain"
)

// UnlockCodeLength is fixed by the protocol.
const UnlockCodeLength = 12

// codeAlphabet avoids visually ambiguous characters (no I, L, O, U,
// 0, 1). Codes are printed for humans to retype.
const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// ErrBadCode rejects input that cannot be an unlock code before any KDF
// work is spent on it.
var ErrBadCode = fmt.Errorf("unlock code must be %d characters", UnlockCodeLength)

// NewUnlockCode generates a fresh 12-character unlock code.
func NewUnlockCode() (string, error) {
	buf := make([]byte, UnlockCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// Normalize canonicalizes user input: case-folded to upper, separators
// dropped. The normalized form is the KDF input.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	if len(code) != UnlockCodeLength {
		return "", ErrBadCode
	}
	return code, nil
}

// Create wraps clientShare under the unlock code. Runs client-side
// only; the server stores the result but cannot produce or open it.
func Create(clientShare []byte, unlockCode string, p crypto.Params) (domain.Envelope, error) {
	code, err := Normalize(unlockCode)
	if err != nil {
		return domain.Envelope{}, err
	}
	w, err := crypto.WrapWithPassword(clientShare, code, p)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{
		WrappedClientShare: w.Ciphertext,
		IV:                 w.IV,
		Salt:               w.Salt,
		KDF:                w.KDF,
		KDFIters:           w.Iters,
	}, nil
}

// Open recovers the client share. An incorrect code has no independent
// checksum and surfaces only as the AEAD failure mapped to
// domain.ErrAuthFailure; callers must keep that distinct from network
// and system errors.
func Open(env domain.Envelope, unlockCode string) ([]byte, error) {
	code, err := Normalize(unlockCode)
	if err != nil {
		// A wrong-shaped code can never be the right code.
		return nil, errors.Join(domain.ErrAuthFailure, err)
	}
	return crypto.UnwrapWithPassword(crypto.Wrapped{
		Ciphertext: env.WrappedClientShare,
		IV:         env.IV,
		Salt:       env.Salt,
		KDF:        env.KDF,
		Iters:      env.KDFIters,
	}, code)
}

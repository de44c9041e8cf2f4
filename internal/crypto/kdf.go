package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"timecapsule/internal/domain"
)

// KDFPBKDF2SHA256 is the only wrap KDF this version understands. The id
// travels with every envelope so the work factor can be raised later
// without invalidating old envelopes.
const KDFPBKDF2SHA256 = "pbkdf2-sha256"

// hkdfSalt is fixed: domain separation comes from the label, and the
// master key is already uniform.
var hkdfSalt = []byte("timecapsule-hkdf-v1")

// Labels for DeriveSubKey. Text and audio get independent keys so their
// decryption fails independently.
const (
	LabelAudio      = "audio-v1"
	LabelWrapClient = "combine-client-v1"
	LabelWrapBackup = "combine-backup-v1"
)

// Params carries the password-wrap KDF configuration. Passed
// explicitly; never a process-wide singleton.
type Params struct {
	KDF   string
	Iters int
}

// DefaultParams is the current production work factor.
func DefaultParams() Params {
	return Params{KDF: KDFPBKDF2SHA256, Iters: 200_000}
}

// DeriveSubKey derives an independent 256-bit key from masterKey for
// the given ASCII label using HKDF-SHA256.
func DeriveSubKey(masterKey []byte, label string) []byte {
	r := hkdf.New(sha256.New, masterKey, hkdfSalt, []byte(label))
	key := make([]byte, KeyBytes)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 can produce far more than 32 bytes; this cannot
		// fail for our sizes.
		panic(err)
	}
	return key
}

// Wrapped is a password-sealed secret plus its public KDF parameters.
type Wrapped struct {
	Ciphertext []byte
	IV         []byte
	Salt       []byte
	KDF        string
	Iters      int
}

// WrapWithPassword seals secret under a key derived from password with
// a fresh random salt.
func WrapWithPassword(secret []byte, password string, p Params) (Wrapped, error) {
	if p.KDF != KDFPBKDF2SHA256 {
		return Wrapped{}, fmt.Errorf("unsupported kdf %q", p.KDF)
	}
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return Wrapped{}, err
	}
	key := pbkdf2.Key([]byte(password), salt, p.Iters, KeyBytes, sha256.New)
	defer Zero(key)

	ct, iv, err := Encrypt(secret, key)
	if err != nil {
		return Wrapped{}, err
	}
	return Wrapped{Ciphertext: ct, IV: iv, Salt: salt, KDF: p.KDF, Iters: p.Iters}, nil
}

// UnwrapWithPassword reverses WrapWithPassword using the parameters
// stored in w. A wrong password surfaces as domain.ErrAuthFailure; a
// parameter set this version cannot process is an integrity failure.
func UnwrapWithPassword(w Wrapped, password string) ([]byte, error) {
	if w.KDF != KDFPBKDF2SHA256 || w.Iters <= 0 || len(w.Salt) == 0 {
		return nil, domain.ErrIntegrityFailure
	}
	key := pbkdf2.Key([]byte(password), w.Salt, w.Iters, KeyBytes, sha256.New)
	defer Zero(key)
	return Decrypt(w.Ciphertext, w.IV, key)
}

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"timecapsule/internal/domain"
)

const (
	// KeyBytes is the AES-256 key size used everywhere in this module.
	KeyBytes = 32
	// IVBytes is the GCM nonce size. Never reused under the same key.
	IVBytes = 12
	// SaltBytes is the KDF salt size.
	SaltBytes = 16
)

var errBadKeySize = errors.New("key must be 32 bytes")

// NewKey returns a fresh random 256-bit key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewIV returns a fresh random 96-bit GCM nonce.
func NewIV() ([]byte, error) {
	iv := make([]byte, IVBytes)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh IV.
func Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}
	iv, err = NewIV()
	if err != nil {
		return nil, nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), iv, nil
}

// Decrypt opens ciphertext. A tag mismatch, from a wrong key or any
// single flipped bit in ciphertext or IV, fails with
// domain.ErrAuthFailure.
func Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVBytes {
		return nil, domain.ErrIntegrityFailure
	}
	pt, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthFailure
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyBytes {
		return nil, errBadKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

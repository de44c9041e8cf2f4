// Package crypto exposes the primitives used by timecapsule.
//
// Contents
//
//   - AES-256-GCM sealing with a fresh random 96-bit IV per call
//     (Encrypt, Decrypt)
//   - HKDF-SHA256 sub-key derivation with ASCII labels for domain
//     separation (DeriveSubKey)
//   - PBKDF2-HMAC-SHA256 password wrapping with the KDF id and
//     iteration count carried beside the ciphertext (WrapWithPassword,
//     UnwrapWithPassword)
//   - Best-effort memory wiping for sensitive byte slices (Zero)
//
// # Notes
//
// An AEAD open failure is the only practical signal of "wrong key", so
// Decrypt and UnwrapWithPassword map it to domain.ErrAuthFailure rather
// than a generic error. KDF parameters travel in an explicit Params
// value; there is no package-level mutable state.
package crypto

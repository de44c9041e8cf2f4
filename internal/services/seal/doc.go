// Package seal is the author/recipient-side pipeline: encrypt the
// letter under a fresh master key, split the key, wrap the client share
// under a new unlock code, persist through the vault, and later reverse
// the whole chain to open the letter.
//
// Every cryptographic operation here runs on the client. The vault
// receives only ciphertext references, the server share and the
// envelope; the unlock code and backup share never leave the author.
package seal

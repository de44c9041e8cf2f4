package secretshare

import (
	"crypto/rand"

	"github.com/fxamacker/cbor/v2"

	"timecapsule/internal/crypto"
	"timecapsule/internal/domain"
)

// Share role tags. The tag byte prefixes the client and backup shares
// so Combine can pick the matching wrapping without guesswork.
const (
	tagClient byte = 0x01
	tagBackup byte = 0x02
)

const serverShareVersion = 1

// Shares is the structured result of Split. Each value individually
// reveals nothing about the master key.
type Shares struct {
	Client []byte
	Server []byte
	Backup []byte
}

// wrapping is one AEAD wrapping of the master key inside the server
// share.
type wrapping struct {
	CT []byte `cbor:"ct"`
	IV []byte `cbor:"iv"`
}

// serverShare is the opaque encoding of the server-held share.
type serverShare struct {
	V      int      `cbor:"v"`
	Client wrapping `cbor:"c"`
	Backup wrapping `cbor:"b"`
}

// Split produces the three shares for masterKey. combine(client,server)
// and combine(backup,server) both reconstruct masterKey; no pair
// excluding the server share reconstructs anything.
func Split(masterKey []byte) (Shares, error) {
	clientSecret := make([]byte, crypto.KeyBytes)
	if _, err := rand.Read(clientSecret); err != nil {
		return Shares{}, err
	}
	backupSecret := make([]byte, crypto.KeyBytes)
	if _, err := rand.Read(backupSecret); err != nil {
		return Shares{}, err
	}

	wrapC, err := wrapUnder(masterKey, clientSecret, crypto.LabelWrapClient)
	if err != nil {
		return Shares{}, err
	}
	wrapB, err := wrapUnder(masterKey, backupSecret, crypto.LabelWrapBackup)
	if err != nil {
		return Shares{}, err
	}

	srv, err := cbor.Marshal(serverShare{V: serverShareVersion, Client: wrapC, Backup: wrapB})
	if err != nil {
		return Shares{}, err
	}

	return Shares{
		Client: append([]byte{tagClient}, clientSecret...),
		Server: srv,
		Backup: append([]byte{tagBackup}, backupSecret...),
	}, nil
}

// Combine reconstructs the master key from the server share and one
// non-server share. Structural problems (bad tag, bad length, undecodable
// server share) fail with domain.ErrIntegrityFailure before any AEAD
// work; a share pair from different letters fails with
// domain.ErrAuthFailure.
func Combine(server, other []byte) ([]byte, error) {
	if len(other) != 1+crypto.KeyBytes {
		return nil, domain.ErrIntegrityFailure
	}
	tag, secret := other[0], other[1:]

	var ss serverShare
	if err := cbor.Unmarshal(server, &ss); err != nil {
		return nil, domain.ErrIntegrityFailure
	}
	if ss.V != serverShareVersion {
		return nil, domain.ErrIntegrityFailure
	}

	switch tag {
	case tagClient:
		return unwrapUnder(ss.Client, secret, crypto.LabelWrapClient)
	case tagBackup:
		return unwrapUnder(ss.Backup, secret, crypto.LabelWrapBackup)
	default:
		return nil, domain.ErrIntegrityFailure
	}
}

func wrapUnder(masterKey, shareSecret []byte, label string) (wrapping, error) {
	key := crypto.DeriveSubKey(shareSecret, label)
	defer crypto.Zero(key)
	ct, iv, err := crypto.Encrypt(masterKey, key)
	if err != nil {
		return wrapping{}, err
	}
	return wrapping{CT: ct, IV: iv}, nil
}

func unwrapUnder(w wrapping, shareSecret []byte, label string) ([]byte, error) {
	if len(w.CT) == 0 || len(w.IV) == 0 {
		return nil, domain.ErrIntegrityFailure
	}
	key := crypto.DeriveSubKey(shareSecret, label)
	defer crypto.Zero(key)
	return crypto.Decrypt(w.CT, w.IV, key)
}

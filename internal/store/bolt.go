package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"timecapsule/internal/domain"
)

const (
	lettersBucket = "letters"
	tokensBucket  = "tokens"
	// activeBucket maps letterID -> the letter's single active token.
	// Maintained in the same transaction as every token transition so
	// an orphaned floating-active token can never exist.
	activeBucket = "active"
)

// BoltStore implements domain.LetterStore and domain.TokenStore over a
// single bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{lettersBucket, tokensBucket, activeBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BoltStore) Close() error {
	if err := s.db.Sync(); err != nil {
		return err
	}
	return s.db.Close()
}

// ---------- Letters ----------

// PutSealed stores a letter atomically with its shares and envelope.
// The record enters the store already sealed; a half-written draft is
// never observable.
func (s *BoltStore) PutSealed(l domain.Letter) error {
	if l.ID == "" {
		return fmt.Errorf("store: letter id required")
	}
	l.Status = domain.StatusSealed
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lettersBucket))
		if bkt.Get([]byte(l.ID)) != nil {
			return fmt.Errorf("store: letter %s already sealed", l.ID)
		}
		return putLetter(bkt, l)
	})
}

// Get returns the stored letter, domain.ErrNotFound if absent.
func (s *BoltStore) Get(id domain.LetterID) (domain.Letter, error) {
	var l domain.Letter
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		l, err = getLetter(tx.Bucket([]byte(lettersBucket)), id)
		return err
	})
	return l, err
}

// Cancel marks the letter canceled. Terminal; idempotent; rejected once
// the letter has been opened.
func (s *BoltStore) Cancel(id domain.LetterID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lettersBucket))
		l, err := getLetter(bkt, id)
		if err != nil {
			return err
		}
		if l.IsUnlocked {
			return domain.ErrAlreadyOpened
		}
		if l.Status == domain.StatusCanceled {
			return nil
		}
		l.Status = domain.StatusCanceled
		return putLetter(bkt, l)
	})
}

// Delete removes the letter and every token minted for it, and returns
// the removed record so the caller can delete the referenced blobs.
func (s *BoltStore) Delete(id domain.LetterID) (domain.Letter, error) {
	var removed domain.Letter
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lettersBucket))
		l, err := getLetter(bkt, id)
		if err != nil {
			return err
		}
		removed = l
		if err := bkt.Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(activeBucket)).Delete([]byte(id)); err != nil {
			return err
		}
		// Drop terminal token records too; a deleted letter leaves no
		// resolvable trace.
		tBkt := tx.Bucket([]byte(tokensBucket))
		c := tBkt.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var st domain.ShareToken
			if cbor.Unmarshal(v, &st) == nil && st.LetterID == id {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return removed, err
}

// MarkOpened is the exactly-once open transition. The canceled check
// runs first, then the time gate, then the conditional flip; the
// returned bool is the sole truth for first-open.
func (s *BoltStore) MarkOpened(id domain.LetterID, now time.Time) (bool, error) {
	first := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lettersBucket))
		l, err := getLetter(bkt, id)
		if err != nil {
			return err
		}
		if l.Status == domain.StatusCanceled {
			return domain.ErrCanceled
		}
		if l.UnlockAt != nil && now.Before(*l.UnlockAt) {
			return domain.ErrTimeLockNotReached
		}
		if l.IsUnlocked {
			return nil
		}
		l.IsUnlocked = true
		t := now.UTC()
		l.UnlockedAt = &t
		first = true
		return putLetter(bkt, l)
	})
	return first, err
}

// RegenerateEnvelope overwrites the stored envelope, at most once per
// letter lifetime and never after open.
func (s *BoltStore) RegenerateEnvelope(id domain.LetterID, env domain.Envelope, now time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lettersBucket))
		l, err := getLetter(bkt, id)
		if err != nil {
			return err
		}
		if l.Status == domain.StatusCanceled {
			return domain.ErrCanceled
		}
		if l.IsUnlocked {
			return domain.ErrAlreadyOpened
		}
		if l.UnlockCodeRegeneratedAt != nil {
			return domain.ErrAlreadyRegenerated
		}
		t := now.UTC()
		l.UnlockCodeRegeneratedAt = &t
		l.Envelope = env
		return putLetter(bkt, l)
	})
}

// ---------- Tokens ----------

// Activate mints token as the active token for letterID, demoting any
// current active token to rotated in the same transaction.
func (s *BoltStore) Activate(letterID domain.LetterID, token domain.Token, now time.Time) (domain.Token, error) {
	var replaced domain.Token
	err := s.db.Update(func(tx *bolt.Tx) error {
		tBkt := tx.Bucket([]byte(tokensBucket))
		aBkt := tx.Bucket([]byte(activeBucket))

		if old := aBkt.Get([]byte(letterID)); old != nil {
			st, err := getToken(tBkt, domain.Token(old))
			if err != nil {
				return err
			}
			st.Status = domain.TokenRotated
			st.ReplacedByToken = token
			if err := putToken(tBkt, st); err != nil {
				return err
			}
			replaced = st.Token
		}

		st := domain.ShareToken{
			Token:     token,
			LetterID:  letterID,
			Status:    domain.TokenActive,
			CreatedAt: now.UTC(),
		}
		if err := putToken(tBkt, st); err != nil {
			return err
		}
		return aBkt.Put([]byte(letterID), []byte(token))
	})
	return replaced, err
}

// Revoke demotes the letter's active token, if any. Revoking with no
// active token succeeds with wasActive=false and changes nothing.
func (s *BoltStore) Revoke(letterID domain.LetterID, reason string, now time.Time) (bool, error) {
	wasActive := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		tBkt := tx.Bucket([]byte(tokensBucket))
		aBkt := tx.Bucket([]byte(activeBucket))

		old := aBkt.Get([]byte(letterID))
		if old == nil {
			return nil
		}
		st, err := getToken(tBkt, domain.Token(old))
		if err != nil {
			return err
		}
		st.Status = domain.TokenRevoked
		t := now.UTC()
		st.RevokedAt = &t
		st.RevokeReason = reason
		if err := putToken(tBkt, st); err != nil {
			return err
		}
		wasActive = true
		return aBkt.Delete([]byte(letterID))
	})
	return wasActive, err
}

// Resolve looks up a token and classifies terminal states distinctly
// from a plain miss. A successful resolve of an active token bumps the
// view telemetry in the same transaction.
func (s *BoltStore) Resolve(token domain.Token, now time.Time) (domain.ShareToken, error) {
	var st domain.ShareToken
	err := s.db.Update(func(tx *bolt.Tx) error {
		tBkt := tx.Bucket([]byte(tokensBucket))
		var err error
		st, err = getToken(tBkt, token)
		if err != nil {
			return err
		}
		switch st.Status {
		case domain.TokenRevoked:
			return domain.ErrTokenRevoked
		case domain.TokenRotated:
			return domain.ErrTokenRotated
		}
		st.ViewCount++
		t := now.UTC()
		st.LastAccessedAt = &t
		return putToken(tBkt, st)
	})
	if err != nil {
		return domain.ShareToken{}, err
	}
	return st, nil
}

// Token returns a token record regardless of status, without touching
// telemetry. Inspection only; disclosure decisions go through Resolve.
func (s *BoltStore) Token(token domain.Token) (domain.ShareToken, error) {
	var st domain.ShareToken
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		st, err = getToken(tx.Bucket([]byte(tokensBucket)), token)
		return err
	})
	return st, err
}

// Active returns the letter's active token, if one exists.
func (s *BoltStore) Active(letterID domain.LetterID) (domain.ShareToken, bool, error) {
	var st domain.ShareToken
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		tok := tx.Bucket([]byte(activeBucket)).Get([]byte(letterID))
		if tok == nil {
			return nil
		}
		var err error
		st, err = getToken(tx.Bucket([]byte(tokensBucket)), domain.Token(tok))
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return st, found, err
}

// ---------- helpers ----------

// cborEnc keeps sub-second timestamp precision. The default time mode
// truncates to whole Unix seconds, which would move a stored UnlockAt
// up to a second earlier than the author chose.
var cborEnc = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func putLetter(bkt *bolt.Bucket, l domain.Letter) error {
	raw, err := cborEnc.Marshal(l)
	if err != nil {
		return err
	}
	return bkt.Put([]byte(l.ID), raw)
}

func getLetter(bkt *bolt.Bucket, id domain.LetterID) (domain.Letter, error) {
	raw := bkt.Get([]byte(id))
	if raw == nil {
		return domain.Letter{}, domain.ErrNotFound
	}
	var l domain.Letter
	if err := cbor.Unmarshal(bytes.Clone(raw), &l); err != nil {
		return domain.Letter{}, err
	}
	return l, nil
}

func putToken(bkt *bolt.Bucket, st domain.ShareToken) error {
	raw, err := cborEnc.Marshal(st)
	if err != nil {
		return err
	}
	return bkt.Put([]byte(st.Token), raw)
}

func getToken(bkt *bolt.Bucket, token domain.Token) (domain.ShareToken, error) {
	raw := bkt.Get([]byte(token))
	if raw == nil {
		return domain.ShareToken{}, domain.ErrNotFound
	}
	var st domain.ShareToken
	if err := cbor.Unmarshal(bytes.Clone(raw), &st); err != nil {
		return domain.ShareToken{}, err
	}
	return st, nil
}

// Compile-time interface assertions.
var (
	_ domain.LetterStore = (*BoltStore)(nil)
	_ domain.TokenStore  = (*BoltStore)(nil)
)

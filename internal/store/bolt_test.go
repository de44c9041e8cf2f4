package store_test

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/domain"
	"timecapsule/internal/store"
)

func openStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sealedLetter(id string, unlockAt *time.Time) domain.Letter {
	return domain.Letter{
		ID:            domain.LetterID(id),
		CiphertextRef: id + "-text.bin",
		IV:            []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		UnlockAt:      unlockAt,
		ServerShare:   []byte("opaque server share"),
		Envelope: domain.Envelope{
			WrappedClientShare: []byte("wrapped"),
			IV:                 []byte("123456789012"),
			Salt:               []byte("0123456789abcdef"),
			KDF:                "pbkdf2-sha256",
			KDFIters:           200_000,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPutSealed_GetRoundTrip(t *testing.T) {
	s := openStore(t)
	at := time.Now().Add(time.Hour).UTC()
	require.NoError(t, s.PutSealed(sealedLetter("l1", &at)))

	got, err := s.Get("l1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSealed, got.Status)
	assert.False(t, got.IsUnlocked)
	require.NotNil(t, got.UnlockAt)
	assert.True(t, got.UnlockAt.Equal(at))
}

func TestPutSealed_KeepsSubSecondUnlockInstant(t *testing.T) {
	s := openStore(t)
	at := time.Date(2027, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	require.NoError(t, s.PutSealed(sealedLetter("l1", &at)))

	got, err := s.Get("l1")
	require.NoError(t, err)
	require.NotNil(t, got.UnlockAt)
	assert.True(t, got.UnlockAt.Equal(at), "round-trip changed the unlock instant")

	// Storage precision must never shift the gate earlier: a caller
	// inside the final half second is still too early.
	_, err = s.MarkOpened("l1", at.Add(-250*time.Millisecond))
	assert.ErrorIs(t, err, domain.ErrTimeLockNotReached)

	first, err := s.MarkOpened("l1", at)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestPutSealed_DuplicateRejected(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))
	assert.Error(t, s.PutSealed(sealedLetter("l1", nil)))
}

func TestGet_Missing(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkOpened_ExactlyOnceUnderConcurrency(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))

	const callers = 16
	firsts := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := s.MarkOpened("l1", time.Now())
			require.NoError(t, err)
			firsts <- first
		}()
	}
	wg.Wait()
	close(firsts)

	count := 0
	for f := range firsts {
		if f {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one caller observes first-open")

	got, err := s.Get("l1")
	require.NoError(t, err)
	assert.True(t, got.IsUnlocked)
	assert.NotNil(t, got.UnlockedAt)
}

func TestMarkOpened_TimeGate(t *testing.T) {
	s := openStore(t)
	at := time.Now().Add(time.Hour).UTC()
	require.NoError(t, s.PutSealed(sealedLetter("l1", &at)))

	_, err := s.MarkOpened("l1", time.Now())
	assert.ErrorIs(t, err, domain.ErrTimeLockNotReached)

	first, err := s.MarkOpened("l1", at.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, first)
}

func TestMarkOpened_CanceledRejectedFirst(t *testing.T) {
	s := openStore(t)
	at := time.Now().Add(time.Hour).UTC()
	require.NoError(t, s.PutSealed(sealedLetter("l1", &at)))
	require.NoError(t, s.Cancel("l1"))

	// Canceled wins over the time gate.
	_, err := s.MarkOpened("l1", time.Now())
	assert.ErrorIs(t, err, domain.ErrCanceled)
	_, err = s.MarkOpened("l1", at.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrCanceled)
}

func TestCancel_AfterOpenRejected(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))
	_, err := s.MarkOpened("l1", time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Cancel("l1"), domain.ErrAlreadyOpened)
}

func TestRegenerateEnvelope_OncePerLifetime(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))

	env := domain.Envelope{WrappedClientShare: []byte("new"), IV: []byte("123456789012"), Salt: []byte("s"), KDF: "pbkdf2-sha256", KDFIters: 300_000}
	require.NoError(t, s.RegenerateEnvelope("l1", env, time.Now()))

	err := s.RegenerateEnvelope("l1", env, time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyRegenerated)

	got, err := s.Get("l1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.Envelope.WrappedClientShare)
	assert.NotNil(t, got.UnlockCodeRegeneratedAt)
}

func TestRegenerateEnvelope_AfterOpenRejected(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))
	_, err := s.MarkOpened("l1", time.Now())
	require.NoError(t, err)

	err = s.RegenerateEnvelope("l1", domain.Envelope{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrAlreadyOpened)
}

func TestActivate_DemotesOldToken(t *testing.T) {
	s := openStore(t)
	now := time.Now()

	replaced, err := s.Activate("l1", "tok-a", now)
	require.NoError(t, err)
	assert.Empty(t, replaced)

	replaced, err = s.Activate("l1", "tok-b", now)
	require.NoError(t, err)
	assert.Equal(t, domain.Token("tok-a"), replaced)

	// Old token is terminal and points at its successor.
	_, err = s.Resolve("tok-a", now)
	assert.ErrorIs(t, err, domain.ErrTokenRotated)

	active, found, err := s.Active("l1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.Token("tok-b"), active.Token)
}

func TestRevoke_Idempotent(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	_, err := s.Activate("l1", "tok-a", now)
	require.NoError(t, err)

	wasActive, err := s.Revoke("l1", "sent to wrong person", now)
	require.NoError(t, err)
	assert.True(t, wasActive)

	wasActive, err = s.Revoke("l1", "again", now)
	require.NoError(t, err)
	assert.False(t, wasActive)

	_, err = s.Resolve("tok-a", now)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	// The recorded reason is the first one; the no-op revoke changed
	// nothing.
	_, found, err := s.Active("l1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResolve_BumpsTelemetry(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	_, err := s.Activate("l1", "tok-a", now)
	require.NoError(t, err)

	st, err := s.Resolve("tok-a", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.ViewCount)

	st, err = s.Resolve("tok-a", now.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.ViewCount)
	require.NotNil(t, st.LastAccessedAt)
}

func TestResolve_UnknownToken(t *testing.T) {
	s := openStore(t)
	_, err := s.Resolve("nope", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesLetterAndTokens(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutSealed(sealedLetter("l1", nil)))
	_, err := s.Activate("l1", "tok-a", time.Now())
	require.NoError(t, err)
	_, err = s.Activate("l1", "tok-b", time.Now())
	require.NoError(t, err)

	removed, err := s.Delete("l1")
	require.NoError(t, err)
	assert.Equal(t, "l1-text.bin", removed.CiphertextRef)

	_, err = s.Get("l1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Resolve("tok-a", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Resolve("tok-b", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileBlobStore_RoundTrip(t *testing.T) {
	bs := store.NewFileBlobStore(t.TempDir())
	require.NoError(t, bs.Put("l1-text.bin", []byte{0xde, 0xad}))

	got, err := bs.Get("l1-text.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, got)

	require.NoError(t, bs.Delete("l1-text.bin"))
	_, err = bs.Get("l1-text.bin")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Refs must stay bare names.
	assert.Error(t, bs.Put("../escape", []byte("x")))
}

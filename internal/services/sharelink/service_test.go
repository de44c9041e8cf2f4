package sharelink_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/domain"
	"timecapsule/internal/log"
	"timecapsule/internal/services/sharelink"
	"timecapsule/internal/store"
)

func newRegistry(t *testing.T) (*sharelink.Service, *store.BoltStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	backend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)

	return sharelink.New(s, s, time.Now, backend.GetLogger("sharelink")), s
}

func sealTestLetter(t *testing.T, s *store.BoltStore, id string) {
	t.Helper()
	require.NoError(t, s.PutSealed(domain.Letter{
		ID:            domain.LetterID(id),
		CiphertextRef: id + "-text.bin",
		ServerShare:   []byte("share"),
		CreatedAt:     time.Now().UTC(),
	}))
}

func TestCreate_MintsResolvableToken(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")

	token, err := reg.Create("l1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	st, err := reg.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, domain.LetterID("l1"), st.LetterID)
	assert.Equal(t, domain.TokenActive, st.Status)
}

func TestCreate_TwiceLeavesOneActive(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")

	first, err := reg.Create("l1")
	require.NoError(t, err)
	second, err := reg.Create("l1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// The replaced token is rotated and points at its successor.
	_, err = reg.Resolve(first)
	assert.ErrorIs(t, err, domain.ErrTokenRotated)

	rotated, err := s.Token(first)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenRotated, rotated.Status)
	assert.Equal(t, second, rotated.ReplacedByToken)

	active, found, err := s.Active("l1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, active.Token)
}

func TestCreate_UnknownLetter(t *testing.T) {
	reg, _ := newRegistry(t)
	_, err := reg.Create("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_CanceledLetter(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")
	require.NoError(t, s.Cancel("l1"))

	_, err := reg.Create("l1")
	assert.ErrorIs(t, err, domain.ErrCanceled)
}

func TestRevoke_Idempotent(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")

	token, err := reg.Create("l1")
	require.NoError(t, err)

	res, err := reg.Revoke("l1", "link leaked")
	require.NoError(t, err)
	assert.True(t, res.WasActive)

	res, err = reg.Revoke("l1", "again")
	require.NoError(t, err)
	assert.False(t, res.WasActive)

	_, err = reg.Resolve(token)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestRotate_OldLinkStopsResolving(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")

	old, err := reg.Create("l1")
	require.NoError(t, err)
	fresh, err := reg.Rotate("l1")
	require.NoError(t, err)

	_, err = reg.Resolve(old)
	assert.ErrorIs(t, err, domain.ErrTokenRotated)

	st, err := reg.Resolve(fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenActive, st.Status)
}

func TestResolve_CountsViews(t *testing.T) {
	reg, s := newRegistry(t)
	sealTestLetter(t, s, "l1")

	token, err := reg.Create("l1")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		st, err := reg.Resolve(token)
		require.NoError(t, err)
		assert.EqualValues(t, i, st.ViewCount)
	}
}

package vault_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timecapsule/internal/crypto"
	"timecapsule/internal/domain"
	"timecapsule/internal/log"
	"timecapsule/internal/services/seal"
	"timecapsule/internal/services/sharelink"
	"timecapsule/internal/services/unlock"
	"timecapsule/internal/store"
	"timecapsule/internal/vault"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testParams keeps the unlock-code KDF cheap for tests.
var testParams = crypto.Params{KDF: crypto.KDFPBKDF2SHA256, Iters: 4_096}

type harness struct {
	clock  *fakeClock
	client *vault.Client
	seal   *seal.Service
}

// newHarness stands up a full vault over HTTP: bbolt store, file blobs,
// the real handlers behind an httptest server, and the author/recipient
// pipeline talking to it through the wire client.
func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	blobs := store.NewFileBlobStore(filepath.Join(dir, "blobs"))

	backend, err := log.New("", "DEBUG", true)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Now().UTC()}
	links := sharelink.New(s, s, clock.Now, backend.GetLogger("sharelink"))
	gate := unlock.New(s, s, clock.Now, nil, backend.GetLogger("unlock"))
	srv := vault.NewServer(s, blobs, links, gate, backend.GetLogger("vault"), nil)

	mux := http.NewServeMux()
	srv.Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client := vault.NewClient(ts.URL, ts.Client())
	pipeline := seal.New(client, blobs, testParams, backend.GetLogger("seal"))
	return &harness{clock: clock, client: client, seal: pipeline}
}

func (h *harness) sealLetter(t *testing.T, text string, unlockIn time.Duration) seal.Result {
	t.Helper()
	req := seal.Request{Text: []byte(text)}
	if unlockIn != 0 {
		at := h.clock.Now().Add(unlockIn)
		req.UnlockAt = &at
	}
	res, err := h.seal.Seal(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestSealThenOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "see you on the other side", 0)
	require.NotEmpty(t, sealed.Token)
	require.Len(t, sealed.UnlockCode, 12)

	opened, err := h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	require.NoError(t, err)
	assert.Equal(t, "see you on the other side", string(opened.Text))
	assert.True(t, opened.IsFirstOpen)

	// Opening again succeeds but is no longer the first open.
	opened, err = h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	require.NoError(t, err)
	assert.False(t, opened.IsFirstOpen)
}

func TestSealWithAudio(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	audio := []byte{0x52, 0x49, 0x46, 0x46, 1, 2, 3, 4}
	res, err := h.seal.Seal(ctx, seal.Request{Text: []byte("listen"), Audio: audio})
	require.NoError(t, err)

	opened, err := h.seal.Open(ctx, res.Token, res.UnlockCode)
	require.NoError(t, err)
	assert.Equal(t, []byte("listen"), opened.Text)
	assert.Equal(t, audio, opened.Audio)
}

func TestOpenBeforeUnlockTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "patience", 24*time.Hour)

	// Pre-gate the disclosure carries the envelope and the countdown
	// target but never the server share.
	d, err := h.client.Resolve(ctx, sealed.Token)
	require.NoError(t, err)
	assert.False(t, d.CanUnlock)
	assert.Nil(t, d.ServerShare)
	assert.NotNil(t, d.UnlockAt)
	assert.NotEmpty(t, d.Envelope.WrappedClientShare)

	_, err = h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	var notYet *seal.NotYetError
	require.ErrorAs(t, err, &notYet)
	assert.ErrorIs(t, err, domain.ErrTimeLockNotReached)

	h.clock.Advance(25 * time.Hour)
	opened, err := h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	require.NoError(t, err)
	assert.Equal(t, "patience", string(opened.Text))
}

func TestOpenWithWrongCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "secret", 0)

	_, err := h.seal.Open(ctx, sealed.Token, "AAAA-BBBB-CCCC")
	assert.ErrorIs(t, err, domain.ErrAuthFailure)

	// The failed attempt never reached the open transition.
	opened, err := h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	require.NoError(t, err)
	assert.True(t, opened.IsFirstOpen)
}

func TestOpenCodeNormalization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "casual typing", 0)

	// Lowercase with separators is the same code.
	loose := strings.ToLower("  " + sealed.UnlockCode[:4] + "-" + sealed.UnlockCode[4:8] + " " + sealed.UnlockCode[8:])
	_, err := h.seal.Open(ctx, sealed.Token, loose)
	require.NoError(t, err)
}

func TestRecoverWithBackupShare(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "the kit works", 0)

	// Round-trip the share through the printed kit, the way a user
	// actually stores it.
	backup, err := seal.ParseRecoveryKit(sealed.RecoveryKit)
	require.NoError(t, err)
	assert.Equal(t, sealed.BackupShare, backup)

	opened, err := h.seal.Recover(ctx, sealed.Token, backup)
	require.NoError(t, err)
	assert.Equal(t, "the kit works", string(opened.Text))
	assert.True(t, opened.IsFirstOpen)
}

func TestRecoverRespectsTimeLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "no shortcuts", time.Hour)

	_, err := h.seal.Recover(ctx, sealed.Token, sealed.BackupShare)
	assert.ErrorIs(t, err, domain.ErrTimeLockNotReached)
}

func TestRegenerateUnlockCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "forgot the code", 0)

	fresh, err := h.seal.Regenerate(ctx, sealed.LetterID, sealed.BackupShare)
	require.NoError(t, err)
	require.NotEqual(t, sealed.UnlockCode, fresh)

	// One regeneration per letter.
	_, err = h.seal.Regenerate(ctx, sealed.LetterID, sealed.BackupShare)
	assert.ErrorIs(t, err, domain.ErrAlreadyRegenerated)

	// The old code is dead, the new one opens the letter.
	_, err = h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	assert.ErrorIs(t, err, domain.ErrAuthFailure)

	opened, err := h.seal.Open(ctx, sealed.Token, fresh)
	require.NoError(t, err)
	assert.Equal(t, "forgot the code", string(opened.Text))

	// Opened letters reject regeneration outright.
	_, err = h.seal.Regenerate(ctx, sealed.LetterID, sealed.BackupShare)
	assert.ErrorIs(t, err, domain.ErrAlreadyOpened)
}

func TestRotateInvalidatesOldLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "new link", 0)

	fresh, err := h.client.Rotate(ctx, sealed.LetterID)
	require.NoError(t, err)
	require.NotEqual(t, sealed.Token, fresh)

	_, err = h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	assert.ErrorIs(t, err, domain.ErrTokenRotated)

	opened, err := h.seal.Open(ctx, fresh, sealed.UnlockCode)
	require.NoError(t, err)
	assert.Equal(t, "new link", string(opened.Text))
}

func TestRevokeKillsLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "gone", 0)

	res, err := h.client.Revoke(ctx, sealed.LetterID, "sent to the wrong person")
	require.NoError(t, err)
	assert.True(t, res.WasActive)

	_, err = h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestCancelBlocksOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "never mind", time.Hour)
	require.NoError(t, h.client.Cancel(ctx, sealed.LetterID))

	h.clock.Advance(2 * time.Hour)
	_, err := h.seal.Open(ctx, sealed.Token, sealed.UnlockCode)
	assert.ErrorIs(t, err, domain.ErrCanceled)
}

func TestDeleteRemovesLetter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sealed := h.sealLetter(t, "erase me", 0)
	require.NoError(t, h.client.Delete(ctx, sealed.LetterID))

	_, err := h.client.Resolve(ctx, sealed.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientTransportFailureIsTransient(t *testing.T) {
	c := vault.NewClient("http://127.0.0.1:1", &http.Client{Timeout: 200 * time.Millisecond})
	_, err := c.Resolve(context.Background(), "token")
	require.Error(t, err)
	var te *domain.TransientError
	assert.ErrorAs(t, err, &te)
}

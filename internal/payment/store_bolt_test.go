package payment

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

func newBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenges.db")
	store, err := NewBoltStore(path, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestBoltStoreLifecycle(t *testing.T) {
	store, _ := newBoltStore(t)
	now := time.Now()
	store.Put(newChallenge("ch-1", now.Add(time.Minute)))

	ch, err := store.Begin("ch-1", now)
	require.NoError(t, err)
	assert.Equal(t, "0.01", ch.Requirements.Amount)

	// In-flight redemption blocks a second redeemer.
	_, err = store.Begin("ch-1", now)
	assert.ErrorIs(t, err, ErrChallengeAlreadyConsumed)

	store.Commit("ch-1")

	_, err = store.Begin("ch-1", now)
	assert.ErrorIs(t, err, ErrChallengeAlreadyConsumed)
}

func TestBoltStoreReleaseAndEvict(t *testing.T) {
	store, _ := newBoltStore(t)
	now := time.Now()
	store.Put(newChallenge("ch-1", now.Add(time.Minute)))

	_, err := store.Begin("ch-1", now)
	require.NoError(t, err)
	store.Release("ch-1")

	_, err = store.Begin("ch-1", now)
	require.NoError(t, err)
	store.Release("ch-1")

	store.Evict("ch-1")
	_, err = store.Begin("ch-1", now)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestBoltStoreExpiry(t *testing.T) {
	store, _ := newBoltStore(t)
	now := time.Now()
	store.Put(newChallenge("ch-1", now.Add(-time.Second)))

	_, err := store.Begin("ch-1", now)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	_, err = store.Begin("ch-1", now)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "challenges.db")
	logger := common.NewSilentLogger()
	now := time.Now()

	store, err := NewBoltStore(path, logger)
	require.NoError(t, err)
	store.Put(newChallenge("pending-1", now.Add(time.Hour)))
	store.Put(newChallenge("consumed-1", now.Add(time.Hour)))
	_, err = store.Begin("consumed-1", now)
	require.NoError(t, err)
	store.Commit("consumed-1")

	// Leave one challenge mid-redemption to simulate a crash.
	_, err = store.Begin("pending-1", now)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(path, logger)
	require.NoError(t, err)
	defer reopened.Close()

	// The in-flight redemption was recovered to pending.
	ch, err := reopened.Begin("pending-1", now)
	require.NoError(t, err)
	assert.Equal(t, "pending-1", ch.ID)

	// The consumed marker survived the restart.
	_, err = reopened.Begin("consumed-1", now)
	assert.ErrorIs(t, err, ErrChallengeAlreadyConsumed)
}

func TestBoltStoreConsumedRetentionExpiry(t *testing.T) {
	store, _ := newBoltStore(t)
	now := time.Now()
	expires := now.Add(time.Minute)
	store.Put(newChallenge("ch-1", expires))

	_, err := store.Begin("ch-1", now)
	require.NoError(t, err)
	store.Commit("ch-1")

	_, err = store.Begin("ch-1", expires.Add(consumedRetention+time.Second))
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

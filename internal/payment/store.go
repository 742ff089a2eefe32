package payment

import (
	"errors"
	"sync"
	"time"
)

// Challenge lookup failures. NotFound and Expired are expected outcomes;
// AlreadyConsumed guards against proof replay.
var (
	ErrChallengeNotFound        = errors.New("challenge not found")
	ErrChallengeExpired         = errors.New("challenge expired")
	ErrChallengeAlreadyConsumed = errors.New("challenge already consumed")
)

// ChallengeStore owns the pending-challenge set. Implementations must make
// the Begin transition atomic per challenge ID: of two concurrent redemption
// attempts, exactly one may enter the redeeming state.
type ChallengeStore interface {
	// Put adds a freshly minted challenge to the pending set.
	Put(ch *Challenge)

	// Begin transitions a pending challenge to the redeeming state and
	// returns it. Expired entries are purged here, not by a background
	// sweep. Fails with ErrChallengeNotFound, ErrChallengeExpired, or
	// ErrChallengeAlreadyConsumed (which also covers in-flight redemption).
	Begin(id string, now time.Time) (*Challenge, error)

	// Commit irreversibly marks a redeeming challenge as consumed.
	Commit(id string)

	// Release returns a redeeming challenge to the pending set so another
	// proof may be attempted before expiry.
	Release(id string)

	// Evict drops a challenge entirely.
	Evict(id string)
}

// consumedRetention is how long consumed challenge IDs are remembered past
// their expiry so replayed proofs keep observing AlreadyConsumed.
const consumedRetention = time.Hour

// MemoryStore is the in-process ChallengeStore: a mutex-guarded map with
// lazy expiry. Suitable for a single-instance server; the pending set is
// initialized empty at startup and torn down at process exit.
type MemoryStore struct {
	mu       sync.Mutex
	pending  map[string]*storedChallenge
	consumed map[string]time.Time // challenge ID -> retain-until
}

type storedChallenge struct {
	ch        *Challenge
	redeeming bool
}

// NewMemoryStore creates an empty in-memory challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:  make(map[string]*storedChallenge),
		consumed: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Put(ch *Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[ch.ID] = &storedChallenge{ch: ch}
	s.cleanupExpiredLocked(time.Now())
}

func (s *MemoryStore) Begin(id string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if retainUntil, ok := s.consumed[id]; ok {
		if now.After(retainUntil) {
			delete(s.consumed, id)
			return nil, ErrChallengeNotFound
		}
		return nil, ErrChallengeAlreadyConsumed
	}

	e, ok := s.pending[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if now.After(e.ch.ExpiresAt) {
		delete(s.pending, id)
		return nil, ErrChallengeExpired
	}
	if e.redeeming {
		return nil, ErrChallengeAlreadyConsumed
	}

	e.redeeming = true
	return e.ch, nil
}

func (s *MemoryStore) Commit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	s.consumed[id] = e.ch.ExpiresAt.Add(consumedRetention)
}

func (s *MemoryStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.pending[id]; ok {
		e.redeeming = false
	}
}

func (s *MemoryStore) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
}

// PendingCount returns the number of pending challenges.
func (s *MemoryStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// cleanupExpiredLocked removes expired entries. Must be called with mu held.
// Redeeming entries are skipped; their outcome settles them.
func (s *MemoryStore) cleanupExpiredLocked(now time.Time) {
	for id, e := range s.pending {
		if !e.redeeming && now.After(e.ch.ExpiresAt) {
			delete(s.pending, id)
		}
	}
	for id, retainUntil := range s.consumed {
		if now.After(retainUntil) {
			delete(s.consumed, id)
		}
	}
}

// Ensure MemoryStore implements ChallengeStore
var _ ChallengeStore = (*MemoryStore)(nil)

package payment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/gloria-ai/gloria-mcp/internal/common"
)

var (
	pendingBucket  = []byte("pending")
	consumedBucket = []byte("consumed")
)

// BoltStore is a ChallengeStore persisted in a bbolt database so pending
// challenges and the consumed set survive restarts. A process-level mutex
// serializes the Begin transition; bbolt handles durability.
type BoltStore struct {
	mu     sync.Mutex
	db     *bbolt.DB
	logger *common.Logger
}

// storedChallengeRecord is the on-disk challenge encoding.
type storedChallengeRecord struct {
	Challenge Challenge `json:"challenge"`
	Redeeming bool      `json:"redeeming"`
}

// NewBoltStore opens (creating if needed) the challenge database at path.
// Redemptions that were in flight when the process died are returned to
// the pending state on open.
func NewBoltStore(path string, logger *common.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create challenge store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open challenge store %s: %w", path, err)
	}

	s := &BoltStore{db: db, logger: logger}
	if err := s.recover(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) recover() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		pending, err := tx.CreateBucketIfNotExists(pendingBucket)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(consumedBucket); err != nil {
			return err
		}

		return pending.ForEach(func(k, v []byte) error {
			var rec storedChallengeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				s.logger.Warn().Str("challenge_id", string(k)).Msg("Dropping Unreadable Challenge Record")
				return pending.Delete(k)
			}
			if !rec.Redeeming {
				return nil
			}
			rec.Redeeming = false
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			return pending.Put(k, data)
		})
	})
}

// Put adds a freshly minted challenge.
func (s *BoltStore) Put(ch *Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec := storedChallengeRecord{Challenge: *ch}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(pendingBucket).Put([]byte(ch.ID), data); err != nil {
			return err
		}
		return cleanupExpiredTx(tx, time.Now())
	})
	if err != nil {
		s.logger.Error().Err(err).Str("challenge_id", ch.ID).Msg("Challenge Persist Failed")
	}
}

// Begin transitions a pending challenge to the redeeming state.
func (s *BoltStore) Begin(id string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out *Challenge
	err := s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)

		if v := tx.Bucket(consumedBucket).Get(key); v != nil {
			retainUntil, err := time.Parse(time.RFC3339, string(v))
			if err == nil && now.Before(retainUntil) {
				return ErrChallengeAlreadyConsumed
			}
			if err := tx.Bucket(consumedBucket).Delete(key); err != nil {
				return err
			}
			return ErrChallengeNotFound
		}

		pending := tx.Bucket(pendingBucket)
		v := pending.Get(key)
		if v == nil {
			return ErrChallengeNotFound
		}

		var rec storedChallengeRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			pending.Delete(key)
			return ErrChallengeNotFound
		}
		if now.After(rec.Challenge.ExpiresAt) {
			if err := pending.Delete(key); err != nil {
				return err
			}
			return ErrChallengeExpired
		}
		if rec.Redeeming {
			return ErrChallengeAlreadyConsumed
		}

		rec.Redeeming = true
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := pending.Put(key, data); err != nil {
			return err
		}

		ch := rec.Challenge
		out = &ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Commit irreversibly marks a redeeming challenge as consumed.
func (s *BoltStore) Commit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)
		pending := tx.Bucket(pendingBucket)

		v := pending.Get(key)
		if v == nil {
			return nil
		}
		var rec storedChallengeRecord
		retainUntil := time.Now().Add(consumedRetention)
		if err := json.Unmarshal(v, &rec); err == nil {
			retainUntil = rec.Challenge.ExpiresAt.Add(consumedRetention)
		}
		if err := pending.Delete(key); err != nil {
			return err
		}
		return tx.Bucket(consumedBucket).Put(key, []byte(retainUntil.UTC().Format(time.RFC3339)))
	})
	if err != nil {
		s.logger.Error().Err(err).Str("challenge_id", id).Msg("Challenge Commit Failed")
	}
}

// Release returns a redeeming challenge to the pending state.
func (s *BoltStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(id)
		pending := tx.Bucket(pendingBucket)

		v := pending.Get(key)
		if v == nil {
			return nil
		}
		var rec storedChallengeRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return pending.Delete(key)
		}
		rec.Redeeming = false
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return pending.Put(key, data)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("challenge_id", id).Msg("Challenge Release Failed")
	}
}

// Evict drops a challenge entirely.
func (s *BoltStore) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pendingBucket).Delete([]byte(id))
	})
	if err != nil {
		s.logger.Error().Err(err).Str("challenge_id", id).Msg("Challenge Evict Failed")
	}
}

// cleanupExpiredTx lazily removes expired pending entries and stale
// consumed markers. Redeeming entries are left for their verdict.
func cleanupExpiredTx(tx *bbolt.Tx, now time.Time) error {
	pending := tx.Bucket(pendingBucket)
	var drop [][]byte
	err := pending.ForEach(func(k, v []byte) error {
		var rec storedChallengeRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			drop = append(drop, append([]byte(nil), k...))
			return nil
		}
		if !rec.Redeeming && now.After(rec.Challenge.ExpiresAt) {
			drop = append(drop, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range drop {
		if err := pending.Delete(k); err != nil {
			return err
		}
	}

	consumed := tx.Bucket(consumedBucket)
	drop = drop[:0]
	err = consumed.ForEach(func(k, v []byte) error {
		retainUntil, err := time.Parse(time.RFC3339, string(v))
		if err != nil || now.After(retainUntil) {
			drop = append(drop, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range drop {
		if err := consumed.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

var _ ChallengeStore = (*BoltStore)(nil)

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// DBFileName is the state database inside the cache directory
const DBFileName = "reel.db"

// Bucket names
var (
	bucketSongs    = []byte("songs")
	bucketSettings = []byte("settings")
)

const keyVolume = "volume"

// StateStore implements domain.StateStore using BoltDB.
type StateStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewStateStore opens the database in dir. An empty dir gives a
// memory-only store.
func NewStateStore(dir string) (*StateStore, error) {
	if dir == "" {
		return &StateStore{cache: make(map[string][]byte)}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSongs, bucketSettings} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &StateStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *StateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *StateStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *StateStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *StateStore) delete(bucket []byte, key string) {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Songs (keyed by cache key) ===

func (s *StateStore) GetSongState(cacheKey string) (domain.SongState, bool) {
	var st domain.SongState
	ok := s.get(bucketSongs, cacheKey, &st)
	return st, ok
}

func (s *StateStore) SaveSongState(cacheKey string, state domain.SongState) error {
	return s.set(bucketSongs, cacheKey, state)
}

func (s *StateStore) DeleteSongState(cacheKey string) {
	s.delete(bucketSongs, cacheKey)
}

// SongStates returns every persisted song record. Memory-only stores
// return what was saved in this process.
func (s *StateStore) SongStates() map[string]domain.SongState {
	out := make(map[string]domain.SongState)
	prefix := string(bucketSongs) + ":"

	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		for k, data := range s.cache {
			if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
				continue
			}
			var st domain.SongState
			if json.Unmarshal(data, &st) == nil {
				out[k[len(prefix):]] = st
			}
		}
		return out
	}

	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSongs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var st domain.SongState
			if json.Unmarshal(v, &st) == nil {
				out[string(k)] = st
			}
			return nil
		})
	})
	return out
}

// === Settings ===

func (s *StateStore) GetVolume() (float64, bool) {
	var v float64
	ok := s.get(bucketSettings, keyVolume, &v)
	return v, ok
}

func (s *StateStore) SaveVolume(volume float64) error {
	return s.set(bucketSettings, keyVolume, volume)
}

// Package badgerstore persists client-side state in an embedded badger database.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"autoyield-vault/internal/domain"
	"autoyield-vault/internal/storage"
)

const gcInterval = 30 * time.Minute

// RateCacheStore implements storage.RateCacheStore on badgerhold.
// Entries are JSON encoded.
type RateCacheStore struct {
	store *badgerhold.Store
	stop  chan struct{}
}

// Compile-time interface check.
var _ storage.RateCacheStore = (*RateCacheStore)(nil)

// NewRateCacheStore opens the store under baseDir/rates. An empty baseDir
// keeps everything in memory.
func NewRateCacheStore(baseDir string, logger badger.Logger) (*RateCacheStore, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, "rates")
	}

	s := &RateCacheStore{stop: make(chan struct{})}
	db, err := s.createDb(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening rates db: %w", err)
	}
	s.store = db
	return s, nil
}

// Get returns the entry for key. Undecodable entries surface as a decode error.
func (s *RateCacheStore) Get(_ context.Context, key string) (*domain.RateCacheEntry, error) {
	var entry domain.RateCacheEntry
	if err := s.store.Get(key, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Put stores the entry, replacing any previous value.
func (s *RateCacheStore) Put(_ context.Context, e *domain.RateCacheEntry) error {
	if e == nil || e.Key == "" {
		return storage.ErrInvalidInput
	}
	return s.store.Upsert(e.Key, e)
}

// Delete removes the entry.
func (s *RateCacheStore) Delete(_ context.Context, key string) error {
	if err := s.store.Delete(key, domain.RateCacheEntry{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Close stops value-log GC and closes the database.
func (s *RateCacheStore) Close() error {
	close(s.stop)
	return s.store.Close()
}

func (s *RateCacheStore) createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          json.Marshal,
		Decoder:          json.Unmarshal,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(gcInterval)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-s.stop:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil &&
						err != badger.ErrNoRewrite {
						log.Error(err)
					}
				}
			}
		}()
	}

	return db, nil
}

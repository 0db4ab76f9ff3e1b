package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "session/"

// BadgerStore is a Store backed by a badger key-value database.
// Keys are laid out as session/<id>/prefix.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a store in dir. An empty dir keeps
// everything in memory for the lifetime of the process.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	// badger logs compaction chatter at info level
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func prefixKey(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + "/prefix")
}

func (s *BadgerStore) LastPrefix(sessionID string) (string, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixKey(sessionID))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session %q: %w", sessionID, err)
	}
	return string(val), nil
}

func (s *BadgerStore) SaveLastPrefix(sessionID, prefix string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefixKey(sessionID), []byte(prefix))
	})
	if err != nil {
		return fmt.Errorf("failed to save session %q: %w", sessionID, err)
	}
	return nil
}

// Sessions lists the stored session ids in key order.
func (s *BadgerStore) Sessions() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			ids = append(ids, strings.TrimSuffix(key, "/prefix"))
		}
		return nil
	})
	return ids, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

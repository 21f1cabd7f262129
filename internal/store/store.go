// Package store persists tag registry state and photo associations in Badger.
//
// Badger plays the role of the device's key-value preference store: each
// piece of state lives as one serialized blob under a well-known key.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// assocMu serializes the load-mutate-persist cycle on the association blob.
	assocMu sync.Mutex
}

// New opens (or creates) a Store at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Every preference write is durable before we report success
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.Info("Badger database opened successfully", "path", path)

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// Ping verifies the database answers reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.getRaw([]byte(keyTags))
	return err
}

// getRawInTxn returns the bytes stored under key, or (nil, false) if absent.
func getRawInTxn(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// setRaw stores bytes under key.
func (s *Store) setRaw(key []byte, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// getRaw reads the bytes under key.
func (s *Store) getRaw(key []byte) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		data, found, err = getRawInTxn(txn, key)
		return err
	})
	return data, found, err
}

// set marshals value as JSON and stores it by key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.setRaw(key, data)
}

package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// Association errors.
var (
	ErrAssociationNotFound = errors.New("association not found")
	ErrEmptyAssetID        = errors.New("asset id is empty")
)

// PutAssociation records snap as the tag of assetID, replacing any earlier
// association for the same asset.
//
// The whole blob is loaded, mutated and written back inside one Badger
// transaction while holding assocMu, so concurrent puts never lose each
// other's entries. Entries this version cannot decode are written back
// untouched.
func (s *Store) PutAssociation(ctx context.Context, assetID string, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if assetID == "" {
		return ErrEmptyAssetID
	}

	s.assocMu.Lock()
	defer s.assocMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		raw, err := s.loadBlobForWrite(txn)
		if err != nil {
			return err
		}

		raw[assetID] = encodeRecord(snap)

		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("marshal association blob: %w", err)
		}
		return txn.Set([]byte(keySavedTags), data)
	})
	if err != nil {
		return fmt.Errorf("put association %s: %w", assetID, err)
	}

	s.logger.Debug("association saved",
		"asset_id", assetID,
		"tag_name", snap.Name,
		"color", snap.Color.Hex(),
	)
	return nil
}

// loadBlobForWrite returns the parsed blob for a read-modify-write cycle.
// A blob that is not a JSON object at all is copied to a quarantine key and
// replaced with an empty map, so tagging keeps working.
func (s *Store) loadBlobForWrite(txn *badger.Txn) (map[string]any, error) {
	data, _, err := getRawInTxn(txn, []byte(keySavedTags))
	if err != nil {
		return nil, err
	}

	raw, err := parseBlob(data)
	if err == nil {
		return raw, nil
	}

	qKey := quarantineKey(keySavedTags, time.Now())
	if err := txn.Set(qKey, data); err != nil {
		return nil, fmt.Errorf("quarantine association blob: %w", err)
	}
	s.logger.Warn("association blob unreadable, quarantined",
		"key", string(qKey),
		"size", len(data),
		"error", err,
	)
	return make(map[string]any), nil
}

// GetAssociation returns the snapshot recorded for assetID.
func (s *Store) GetAssociation(ctx context.Context, assetID string) (domain.Snapshot, error) {
	all, err := s.ListAssociations(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap, ok := all[assetID]
	if !ok {
		return domain.Snapshot{}, ErrAssociationNotFound
	}
	return snap, nil
}

// ListAssociations returns every decodable association keyed by asset ID.
//
// Loading never fails because of stored content: malformed entries are
// skipped one by one, and an unreadable blob reads as empty. Only storage
// errors are returned.
func (s *Store) ListAssociations(ctx context.Context) (map[string]domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := s.getRaw([]byte(keySavedTags))
	if err != nil {
		return nil, fmt.Errorf("load associations: %w", err)
	}

	raw, err := parseBlob(data)
	if err != nil {
		s.logger.Warn("association blob unreadable, treating as empty", "error", err)
		return make(map[string]domain.Snapshot), nil
	}

	out, skipped := decodeAll(raw)
	if len(skipped) > 0 {
		s.logger.Warn("skipped malformed associations",
			"count", len(skipped),
			"asset_ids", skipped,
		)
	}
	return out, nil
}

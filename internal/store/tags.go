package store

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"

	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// LoadTags returns the persisted tag registry in display order.
// found is false when no registry has ever been saved.
// Entries that fail to decode or have no ID are skipped.
func (s *Store) LoadTags(ctx context.Context) (tags []domain.Tag, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, found, err := s.getRaw([]byte(keyTags))
	if err != nil {
		return nil, false, fmt.Errorf("load tags: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var items []jsontext.Value
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("tag registry blob unreadable, treating as empty", "error", err)
		return []domain.Tag{}, true, nil
	}

	tags = make([]domain.Tag, 0, len(items))
	for i, item := range items {
		var t domain.Tag
		if err := json.Unmarshal(item, &t); err != nil || t.ID == "" {
			s.logger.Warn("skipped malformed tag", "index", i, "error", err)
			continue
		}
		tags = append(tags, t)
	}
	return tags, true, nil
}

// SaveTags replaces the persisted registry with tags, in order.
func (s *Store) SaveTags(ctx context.Context, tags []domain.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}

	if err := s.set([]byte(keyTags), tags); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}

// Package registry holds the user's ordered list of tags.
//
// The list lives in memory behind a RWMutex and is written through to a
// Store on every change. Insertion order is display order.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	"github.com/dunbarapp/dunbar-server/internal/id"
)

// Registry errors.
var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidColor    = errors.New("invalid tag color")
)

// Store persists the registry between runs.
type Store interface {
	LoadTags(ctx context.Context) ([]domain.Tag, bool, error)
	SaveTags(ctx context.Context, tags []domain.Tag) error
}

// Registry is the ordered, editable tag list.
type Registry struct {
	mu     sync.RWMutex
	tags   []domain.Tag
	store  Store
	logger *slog.Logger
}

// defaultTags are seeded on first run.
var defaultTags = []struct {
	name  string
	color color.RGBA
}{
	{"Work", color.Blue},
	{"Personal", color.Green},
	{"Travel", color.Orange},
}

// New loads the registry from store. When nothing has ever been saved the
// default tags are seeded and persisted.
func New(ctx context.Context, store Store, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Registry{store: store, logger: logger}

	tags, found, err := store.LoadTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if found {
		r.tags = tags
		logger.Debug("tag registry loaded", "count", len(tags))
		return r, nil
	}

	now := time.Now()
	seeded := make([]domain.Tag, 0, len(defaultTags))
	for _, d := range defaultTags {
		tagID, err := id.Generate(id.PrefixTag)
		if err != nil {
			return nil, err
		}
		seeded = append(seeded, domain.Tag{
			ID:        tagID,
			Name:      d.name,
			Color:     d.color,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := store.SaveTags(ctx, seeded); err != nil {
		return nil, fmt.Errorf("seed registry: %w", err)
	}
	r.tags = seeded

	logger.Info("tag registry seeded with defaults", "count", len(seeded))
	return r, nil
}

// List returns a copy of the tags in display order.
func (r *Registry) List() []domain.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tags)
}

// Len returns the number of tags.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tags)
}

// Get returns the tag with the given ID.
func (r *Registry) Get(tagID string) (domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(tagID)
	if i < 0 {
		return domain.Tag{}, ErrTagNotFound
	}
	return r.tags[i], nil
}

// FindByName returns the first tag in display order whose name is name.
func (r *Registry) FindByName(name string) (domain.Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tags {
		if t.Name == name {
			return t, true
		}
	}
	return domain.Tag{}, false
}

// Add appends a new tag and returns it.
// Names are not checked for uniqueness.
func (r *Registry) Add(ctx context.Context, name string, c color.RGBA) (domain.Tag, error) {
	if err := c.Validate(); err != nil {
		return domain.Tag{}, fmt.Errorf("%w: %w", ErrInvalidColor, err)
	}

	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return domain.Tag{}, err
	}
	now := time.Now()
	tag := domain.Tag{ID: tagID, Name: name, Color: c, CreatedAt: now, UpdatedAt: now}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(slices.Clone(r.tags), tag)
	if err := r.commit(ctx, next); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

// Rename changes the name of a tag in place.
// Associations already recorded keep the old name.
func (r *Registry) Rename(ctx context.Context, tagID, name string) (domain.Tag, error) {
	return r.Update(ctx, tagID, func(t *domain.Tag) { t.Name = name })
}

// Recolor changes the color of a tag in place.
func (r *Registry) Recolor(ctx context.Context, tagID string, c color.RGBA) (domain.Tag, error) {
	return r.Update(ctx, tagID, func(t *domain.Tag) { t.Color = c })
}

// Update applies mutate to the tag and persists the result in one commit,
// so several field changes land together or not at all. mutate must not
// change the ID.
func (r *Registry) Update(ctx context.Context, tagID string, mutate func(*domain.Tag)) (domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(tagID)
	if i < 0 {
		return domain.Tag{}, ErrTagNotFound
	}

	next := slices.Clone(r.tags)
	mutate(&next[i])
	next[i].ID = tagID
	if err := next[i].Color.Validate(); err != nil {
		return domain.Tag{}, fmt.Errorf("%w: %w", ErrInvalidColor, err)
	}
	next[i].Touch()

	if err := r.commit(ctx, next); err != nil {
		return domain.Tag{}, err
	}
	return next[i], nil
}

// Delete removes the tag with the given ID and returns it.
// Associations that captured the tag are not touched.
func (r *Registry) Delete(ctx context.Context, tagID string) (domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(tagID)
	if i < 0 {
		return domain.Tag{}, ErrTagNotFound
	}
	return r.deleteAt(ctx, i)
}

// DeleteAt removes the tag at a display position and returns it.
func (r *Registry) DeleteAt(ctx context.Context, index int) (domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.tags) {
		return domain.Tag{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(r.tags))
	}
	return r.deleteAt(ctx, index)
}

func (r *Registry) deleteAt(ctx context.Context, i int) (domain.Tag, error) {
	removed := r.tags[i]
	next := slices.Delete(slices.Clone(r.tags), i, i+1)
	if err := r.commit(ctx, next); err != nil {
		return domain.Tag{}, err
	}
	return removed, nil
}

// Move takes the tag at from out of the list and reinserts it so that it
// ends up at position to. Both indices must be in [0, Len()).
// It returns the moved tag.
func (r *Registry) Move(ctx context.Context, from, to int) (domain.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.tags)
	if from < 0 || from >= n {
		return domain.Tag{}, fmt.Errorf("%w: from %d not in [0, %d)", ErrIndexOutOfRange, from, n)
	}
	if to < 0 || to >= n {
		return domain.Tag{}, fmt.Errorf("%w: to %d not in [0, %d)", ErrIndexOutOfRange, to, n)
	}
	moved := r.tags[from]
	if from == to {
		return moved, nil
	}

	next := slices.Clone(r.tags)
	next = slices.Delete(next, from, from+1)
	next = slices.Insert(next, to, moved)

	return moved, r.commit(ctx, next)
}

// commit persists next and, only if that succeeds, makes it current.
// Callers hold r.mu.
func (r *Registry) commit(ctx context.Context, next []domain.Tag) error {
	if err := r.store.SaveTags(ctx, next); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	r.tags = next
	return nil
}

func (r *Registry) indexOf(tagID string) int {
	return slices.IndexFunc(r.tags, func(t domain.Tag) bool { return t.ID == tagID })
}

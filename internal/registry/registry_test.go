package registry

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	"github.com/dunbarapp/dunbar-server/internal/store"
)

// memStore is an in-memory Store that can be told to fail saves.
type memStore struct {
	mu      sync.Mutex
	tags    []domain.Tag
	found   bool
	saves   int
	failErr error
}

func (m *memStore) LoadTags(_ context.Context) ([]domain.Tag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.tags), m.found, nil
}

func (m *memStore) SaveTags(_ context.Context, tags []domain.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.tags = slices.Clone(tags)
	m.found = true
	m.saves++
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *memStore) {
	t.Helper()
	ms := &memStore{}
	r, err := New(context.Background(), ms, nil)
	require.NoError(t, err)
	return r, ms
}

func names(tags []domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func TestNew_SeedsDefaults(t *testing.T) {
	r, ms := newTestRegistry(t)

	tags := r.List()
	assert.Equal(t, []string{"Work", "Personal", "Travel"}, names(tags))
	assert.Equal(t, color.Blue, tags[0].Color)
	assert.Equal(t, color.Green, tags[1].Color)
	assert.Equal(t, color.Orange, tags[2].Color)
	assert.Equal(t, 1, ms.saves)
	assert.Len(t, ms.tags, 3)
}

func TestNew_EmptySavedRegistryIsNotReseeded(t *testing.T) {
	ms := &memStore{found: true}
	r, err := New(context.Background(), ms, nil)
	require.NoError(t, err)

	assert.Zero(t, r.Len())
	assert.Zero(t, ms.saves)
}

func TestAdd_AppendsWithUniqueIDs(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Add(ctx, "Family", color.Opaque(1, 0, 0))
	require.NoError(t, err)
	b, err := r.Add(ctx, "Family", color.Opaque(1, 0, 0))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []string{"Work", "Personal", "Travel", "Family", "Family"}, names(r.List()))
	assert.Equal(t, names(r.List()), names(ms.tags))

	seen := map[string]bool{}
	for _, tag := range r.List() {
		assert.False(t, seen[tag.ID], "duplicate id %s", tag.ID)
		seen[tag.ID] = true
	}
}

func TestAdd_RejectsInvalidColor(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Add(context.Background(), "Bad", color.RGBA{Red: 2, Alpha: 1})
	assert.ErrorIs(t, err, ErrInvalidColor)
	assert.Equal(t, 3, r.Len())
}

func TestRenameAndRecolor(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	work := r.List()[0]

	renamed, err := r.Rename(ctx, work.ID, "Office")
	require.NoError(t, err)
	assert.Equal(t, "Office", renamed.Name)
	assert.Equal(t, work.ID, renamed.ID)
	assert.False(t, renamed.UpdatedAt.Before(work.UpdatedAt))

	recolored, err := r.Recolor(ctx, work.ID, color.Orange)
	require.NoError(t, err)
	assert.Equal(t, color.Orange, recolored.Color)
	assert.Equal(t, "Office", recolored.Name)

	got, err := r.Get(work.ID)
	require.NoError(t, err)
	assert.Equal(t, recolored, got)
	assert.Equal(t, 0, slices.IndexFunc(r.List(), func(t domain.Tag) bool { return t.ID == work.ID }))
}

func TestUpdate_AppliesAllFieldsInOneCommit(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()
	work := r.List()[0]
	savesBefore := ms.saves

	updated, err := r.Update(ctx, work.ID, func(tag *domain.Tag) {
		tag.Name = "Office"
		tag.Color = color.Orange
		tag.ID = "tag-hijack"
	})
	require.NoError(t, err)
	assert.Equal(t, savesBefore+1, ms.saves)
	assert.Equal(t, work.ID, updated.ID)
	assert.Equal(t, "Office", updated.Name)
	assert.Equal(t, color.Orange, updated.Color)
	assert.Equal(t, updated, ms.tags[0])
}

func TestUpdate_FailedSaveChangesNothing(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()
	work := r.List()[0]

	ms.failErr = errors.New("disk full")
	_, err := r.Update(ctx, work.ID, func(tag *domain.Tag) {
		tag.Name = "Office"
		tag.Color = color.Orange
	})
	require.Error(t, err)

	got, err := r.Get(work.ID)
	require.NoError(t, err)
	assert.Equal(t, work, got)
}

func TestUpdate_RejectsInvalidColor(t *testing.T) {
	r, ms := newTestRegistry(t)
	savesBefore := ms.saves
	work := r.List()[0]

	_, err := r.Update(context.Background(), work.ID, func(tag *domain.Tag) {
		tag.Name = "Office"
		tag.Color = color.RGBA{Red: 2, Alpha: 1}
	})
	assert.ErrorIs(t, err, ErrInvalidColor)
	assert.Equal(t, savesBefore, ms.saves)
	assert.Equal(t, "Work", r.List()[0].Name)
}

func TestUnknownTag(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Get("tag-missing")
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = r.Rename(ctx, "tag-missing", "x")
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = r.Recolor(ctx, "tag-missing", color.Blue)
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = r.Delete(ctx, "tag-missing")
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestDeleteAndDeleteAt(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	personal := r.List()[1]

	removed, err := r.Delete(ctx, personal.ID)
	require.NoError(t, err)
	assert.Equal(t, personal, removed)
	assert.Equal(t, []string{"Work", "Travel"}, names(r.List()))

	removed, err = r.DeleteAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Travel", removed.Name)
	assert.Equal(t, []string{"Work"}, names(r.List()))

	_, err = r.DeleteAt(ctx, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.DeleteAt(ctx, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		expected []string
	}{
		{"first to last", 0, 2, []string{"Personal", "Travel", "Work"}},
		{"last to first", 2, 0, []string{"Travel", "Work", "Personal"}},
		{"down one", 0, 1, []string{"Personal", "Work", "Travel"}},
		{"same position", 1, 1, []string{"Work", "Personal", "Travel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry(t)
			before := r.List()

			moved, err := r.Move(context.Background(), tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, before[tt.from].ID, moved.ID)

			after := r.List()
			assert.Equal(t, tt.expected, names(after))
			assert.ElementsMatch(t, before, after)
		})
	}
}

func TestMove_OutOfRangeLeavesStateUnchanged(t *testing.T) {
	r, ms := newTestRegistry(t)
	before := r.List()
	saves := ms.saves

	for _, idx := range [][2]int{{-1, 0}, {0, 3}, {3, 0}, {0, -1}} {
		_, err := r.Move(context.Background(), idx[0], idx[1])
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "move %v", idx)
	}

	assert.Equal(t, before, r.List())
	assert.Equal(t, saves, ms.saves)
}

func TestFindByName_FirstInDisplayOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	dup, err := r.Add(ctx, "Work", color.Orange)
	require.NoError(t, err)

	found, ok := r.FindByName("Work")
	require.True(t, ok)
	assert.NotEqual(t, dup.ID, found.ID)

	_, err = r.Move(ctx, 3, 0)
	require.NoError(t, err)
	found, ok = r.FindByName("Work")
	require.True(t, ok)
	assert.Equal(t, dup.ID, found.ID)

	_, ok = r.FindByName("Nope")
	assert.False(t, ok)
}

func TestSaveFailure_DoesNotChangeState(t *testing.T) {
	r, ms := newTestRegistry(t)
	ctx := context.Background()
	before := r.List()

	ms.failErr = errors.New("disk full")

	_, err := r.Add(ctx, "Family", color.Blue)
	assert.ErrorContains(t, err, "disk full")
	_, err = r.Rename(ctx, before[0].ID, "Office")
	assert.Error(t, err)
	_, err = r.Delete(ctx, before[0].ID)
	assert.Error(t, err)
	_, err = r.Move(ctx, 0, 2)
	assert.Error(t, err)

	assert.Equal(t, before, r.List())
}

func TestRegistry_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "prefs.db")

	s, err := store.New(dbPath, nil)
	require.NoError(t, err)

	r, err := New(ctx, s, nil)
	require.NoError(t, err)
	_, err = r.Add(ctx, "Family", color.Opaque(0.5, 0.25, 0.75))
	require.NoError(t, err)
	_, err = r.Move(ctx, 3, 0)
	require.NoError(t, err)
	want := r.List()
	require.NoError(t, s.Close())

	s, err = store.New(dbPath, nil)
	require.NoError(t, err)
	defer s.Close()

	reopened, err := New(ctx, s, nil)
	require.NoError(t, err)

	got := reopened.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Color, got[i].Color)
	}
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Add(ctx, "Burst", color.Blue)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 23, r.Len())
}

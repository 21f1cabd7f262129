package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
)

var errMissing = errors.New("asset not found")

type fakeAssociations struct {
	snaps map[string]domain.Snapshot
	err   error
}

func (f *fakeAssociations) ListAssociations(context.Context) (map[string]domain.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.Snapshot, len(f.snaps))
	for k, v := range f.snaps {
		out[k] = v
	}
	return out, nil
}

type fakeAssets struct {
	assets []domain.Asset

	mu         sync.Mutex
	fetches    map[domain.ImageSize]int
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	failThumbs map[string]bool

	// block, when set, is waited on by full-size fetches.
	block chan struct{}
}

func (f *fakeAssets) Enumerate(context.Context) ([]domain.Asset, error) {
	return append([]domain.Asset(nil), f.assets...), nil
}

func (f *fakeAssets) Stat(assetID string) (domain.Asset, error) {
	for _, a := range f.assets {
		if a.ID == assetID {
			return a, nil
		}
	}
	return domain.Asset{}, errMissing
}

func (f *fakeAssets) FetchImage(ctx context.Context, assetID string, size domain.ImageSize) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxFlight.Load()
		if n <= prev || f.maxFlight.CompareAndSwap(prev, n) {
			break
		}
	}

	f.mu.Lock()
	if f.fetches == nil {
		f.fetches = make(map[domain.ImageSize]int)
	}
	f.fetches[size]++
	fail := f.failThumbs[assetID]
	f.mu.Unlock()

	if size.IsFull() && f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !size.IsFull() {
		time.Sleep(5 * time.Millisecond)
	}
	if fail {
		return nil, errors.New("decode failed")
	}
	if size.IsFull() {
		return []byte("full:" + assetID), nil
	}
	return []byte("thumb:" + assetID), nil
}

func (f *fakeAssets) BlurHash(_ context.Context, assetID string) (string, error) {
	return "hash-" + assetID, nil
}

func (f *fakeAssets) fetchCount(size domain.ImageSize) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[size]
}

var (
	t0        = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	red       = color.Opaque(1, 0, 0)
	blue      = color.Opaque(0, 0, 1)
	travelRed = domain.Snapshot{Name: "Travel", Color: red}
)

func TestFeed_JoinsAndSortsNewestFirst(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{
		"A":      travelRed,
		"B":      {Name: "Work", Color: blue},
		"C":      {Name: "Work", Color: red},
		"orphan": travelRed,
	}}
	assets := &fakeAssets{assets: []domain.Asset{
		{ID: "A", CreatedAt: t0},
		{ID: "untagged", CreatedAt: t0.Add(time.Hour)},
		{ID: "B", CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "C", CreatedAt: t0.Add(time.Minute)},
	}}
	b := NewBuilder(assocs, assets, Options{}, nil)

	items, err := b.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, []string{"B", "C", "A"}, []string{items[0].AssetID, items[1].AssetID, items[2].AssetID})
	assert.Equal(t, "Work", items[0].TagName)
	assert.Equal(t, blue, items[0].Color)
	assert.Equal(t, red, items[1].Color, "each item uses its own snapshot color")
	assert.Equal(t, []byte("thumb:B"), items[0].Thumbnail)
	assert.Equal(t, "hash-B", items[0].BlurHash)
	assert.Equal(t, 3, assets.fetchCount(domain.Square(100)))
	assert.Zero(t, assets.fetchCount(domain.FullSize), "feed never fetches full resolution")
}

func TestFeed_TiesKeepEnumerationOrder(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{"X": travelRed, "Y": travelRed, "Z": travelRed}}
	assets := &fakeAssets{assets: []domain.Asset{
		{ID: "X", CreatedAt: t0},
		{ID: "Y", CreatedAt: t0},
		{ID: "Z", CreatedAt: t0},
	}}
	b := NewBuilder(assocs, assets, Options{}, nil)

	items, err := b.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, []string{items[0].AssetID, items[1].AssetID, items[2].AssetID})
}

func TestFeed_Empty(t *testing.T) {
	b := NewBuilder(&fakeAssociations{}, &fakeAssets{}, Options{}, nil)

	items, err := b.Feed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFeed_AssociationError(t *testing.T) {
	b := NewBuilder(&fakeAssociations{err: errors.New("boom")}, &fakeAssets{}, Options{}, nil)

	_, err := b.Feed(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestFeed_ThumbnailFailureIsNotFatal(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{"A": travelRed, "B": travelRed}}
	assets := &fakeAssets{
		assets:     []domain.Asset{{ID: "A", CreatedAt: t0}, {ID: "B", CreatedAt: t0.Add(time.Second)}},
		failThumbs: map[string]bool{"A": true},
	}
	b := NewBuilder(assocs, assets, Options{}, nil)

	items, err := b.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotEmpty(t, items[0].Thumbnail)
	assert.Empty(t, items[1].Thumbnail)
}

func TestFeed_BoundedConcurrencyAndCache(t *testing.T) {
	snaps := make(map[string]domain.Snapshot)
	var list []domain.Asset
	for i := range 20 {
		id := string(rune('a' + i))
		snaps[id] = travelRed
		list = append(list, domain.Asset{ID: id, CreatedAt: t0.Add(time.Duration(i) * time.Second)})
	}
	assets := &fakeAssets{assets: list}
	b := NewBuilder(&fakeAssociations{snaps: snaps}, assets, Options{FetchConcurrency: 3, ThumbnailSize: 64}, nil)

	_, err := b.Feed(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, assets.maxFlight.Load(), int32(3))
	assert.Equal(t, 20, assets.fetchCount(domain.Square(64)))
	assert.Equal(t, 20, b.CachedCount())

	// Second build is served from cache.
	_, err = b.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, assets.fetchCount(domain.Square(64)))

	b.Invalidate("a")
	_, err = b.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21, assets.fetchCount(domain.Square(64)))

	b.InvalidateAll()
	assert.Zero(t, b.CachedCount())
}

func TestFeedByTag(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{
		"A": travelRed,
		"B": {Name: "Work", Color: blue},
		"C": {Name: "Travel", Color: blue},
	}}
	assets := &fakeAssets{assets: []domain.Asset{
		{ID: "A", CreatedAt: t0},
		{ID: "B", CreatedAt: t0.Add(time.Hour)},
		{ID: "C", CreatedAt: t0.Add(2 * time.Hour)},
	}}
	b := NewBuilder(assocs, assets, Options{}, nil)

	items, err := b.FeedByTag(context.Background(), "Travel")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].AssetID)
	assert.Equal(t, blue, items[0].Color)
	assert.Equal(t, "A", items[1].AssetID)
	assert.Equal(t, red, items[1].Color)
	assert.Equal(t, 2, assets.fetchCount(domain.Square(100)), "only matching items get thumbnails")

	none, err := b.FeedByTag(context.Background(), "travel")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalog(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{
		"A1":     travelRed,
		"A2":     travelRed,
		"A3":     {Name: "Travel", Color: blue},
		"A4":     {Name: "Beach", Color: blue},
		"orphan": travelRed,
		"legacy": {Name: "Work", Color: color.Placeholder, Legacy: true},
	}}
	b := NewBuilder(assocs, &fakeAssets{}, Options{}, nil)

	entries, err := b.Catalog(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.CatalogEntry{
		{Name: "Beach", Color: blue, Count: 1},
		{Name: "Travel", Color: blue, Count: 1},
		{Name: "Travel", Color: red, Count: 3},
		{Name: "Work", Color: color.Placeholder, Count: 1},
	}, entries)
}

func TestCatalog_SameHexIsDeterministic(t *testing.T) {
	low := color.RGBA{Red: 0.5, Green: 0.2, Blue: 0.2, Alpha: 1}
	high := color.RGBA{Red: 0.501, Green: 0.2, Blue: 0.2, Alpha: 1}
	require.Equal(t, low.Hex(), high.Hex())

	snaps := map[string]domain.Snapshot{}
	for i := range 10 {
		snaps[fmt.Sprintf("low-%d", i)] = domain.Snapshot{Name: "Gym", Color: low}
		snaps[fmt.Sprintf("high-%d", i)] = domain.Snapshot{Name: "Gym", Color: high}
	}
	b := NewBuilder(&fakeAssociations{snaps: snaps}, &fakeAssets{}, Options{}, nil)

	for range 20 {
		entries, err := b.Catalog(context.Background())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 20, entries[0].Count)
		assert.Equal(t, low, entries[0].Color)
	}
}

func TestCatalog_Empty(t *testing.T) {
	b := NewBuilder(&fakeAssociations{}, &fakeAssets{}, Options{}, nil)

	entries, err := b.Catalog(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPreview(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{"A": travelRed, "gone": travelRed}}
	assets := &fakeAssets{assets: []domain.Asset{{ID: "A", CreatedAt: t0}, {ID: "untagged", CreatedAt: t0}}}
	b := NewBuilder(assocs, assets, Options{}, nil)
	ctx := context.Background()

	p, err := b.Preview(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []byte("full:A"), p.Image)
	assert.Equal(t, "Travel", p.TagName)
	assert.Equal(t, red, p.Color)
	assert.True(t, p.CreatedAt.Equal(t0))
	assert.Zero(t, b.CachedCount(), "previews are not cached")

	_, err = b.Preview(ctx, "untagged")
	assert.ErrorIs(t, err, ErrNotTagged)

	_, err = b.Preview(ctx, "gone")
	assert.ErrorIs(t, err, errMissing)
}

func TestPreview_Cancelled(t *testing.T) {
	assocs := &fakeAssociations{snaps: map[string]domain.Snapshot{"A": travelRed}}
	assets := &fakeAssets{assets: []domain.Asset{{ID: "A", CreatedAt: t0}}, block: make(chan struct{})}
	b := NewBuilder(assocs, assets, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.Preview(ctx, "A")
		done <- err
	}()

	// Wait for the fetch to start, then dismiss.
	require.Eventually(t, func() bool { return assets.fetchCount(domain.FullSize) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("preview did not stop after cancel")
	}
	assert.Zero(t, b.CachedCount())
}

func TestThumbnail_CancelledDoesNotCache(t *testing.T) {
	assets := &fakeAssets{assets: []domain.Asset{{ID: "A", CreatedAt: t0}}}
	b := NewBuilder(&fakeAssociations{}, assets, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Thumbnail(ctx, "A")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, b.CachedCount())

	data, err := b.Thumbnail(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []byte("thumb:A"), data)
	assert.Equal(t, 1, b.CachedCount())
}

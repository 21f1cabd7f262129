// Package gallery derives the browsable views of tagged photos: the
// chronological feed, the tag catalog and per-tag feeds.
//
// Views are rebuilt from the association store and the asset library on
// every call. Only thumbnails are cached.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// Gallery errors.
var (
	ErrNotTagged = errors.New("asset has no tag")
)

// AssociationSource provides the saved asset → snapshot map.
type AssociationSource interface {
	ListAssociations(ctx context.Context) (map[string]domain.Snapshot, error)
}

// AssetSource provides asset enumeration and image fetches.
type AssetSource interface {
	Enumerate(ctx context.Context) ([]domain.Asset, error)
	Stat(assetID string) (domain.Asset, error)
	FetchImage(ctx context.Context, assetID string, size domain.ImageSize) ([]byte, error)
	BlurHash(ctx context.Context, assetID string) (string, error)
}

// Options configures a Builder.
type Options struct {
	// ThumbnailSize is the edge of the square box thumbnails are fitted to.
	ThumbnailSize int
	// FetchConcurrency bounds parallel thumbnail fetches.
	FetchConcurrency int
	// CacheTTL is how long a thumbnail stays cached.
	CacheTTL time.Duration
}

func (o *Options) setDefaults() {
	if o.ThumbnailSize <= 0 {
		o.ThumbnailSize = 100
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 4
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
}

// thumb is a cached thumbnail.
type thumb struct {
	data     []byte
	blurHash string
}

// Builder assembles gallery views.
type Builder struct {
	associations AssociationSource
	assets       AssetSource
	opts         Options
	cache        *cache.Cache
	logger       *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(associations AssociationSource, assets AssetSource, opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	return &Builder{
		associations: associations,
		assets:       assets,
		opts:         opts,
		cache:        cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger:       logger,
	}
}

// Feed returns every tagged asset, newest first, with thumbnails.
//
// Assets without an association and associations whose asset is gone are
// left out. Each item carries the color captured in its own snapshot.
// A thumbnail that cannot be produced leaves Thumbnail empty rather than
// failing the feed.
func (b *Builder) Feed(ctx context.Context) ([]domain.FeedItem, error) {
	items, err := b.feedItems(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.attachThumbnails(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// FeedByTag returns the feed restricted to snapshots named name.
// Items keep their own snapshot colors, which may differ from one another.
func (b *Builder) FeedByTag(ctx context.Context, name string) ([]domain.FeedItem, error) {
	items, err := b.feedItems(ctx)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		if item.TagName == name {
			filtered = append(filtered, item)
		}
	}

	if err := b.attachThumbnails(ctx, filtered); err != nil {
		return nil, err
	}
	return filtered, nil
}

// feedItems joins assets with associations and sorts newest first.
func (b *Builder) feedItems(ctx context.Context) ([]domain.FeedItem, error) {
	assocs, err := b.associations.ListAssociations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}

	assets, err := b.assets.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate assets: %w", err)
	}

	items := make([]domain.FeedItem, 0, min(len(assets), len(assocs)))
	for _, a := range assets {
		snap, ok := assocs[a.ID]
		if !ok {
			continue
		}
		items = append(items, domain.FeedItem{
			AssetID:   a.ID,
			TagName:   snap.Name,
			Color:     snap.Color,
			CreatedAt: a.CreatedAt,
		})
	}

	// Stable, so equal timestamps keep enumeration order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if orphans := len(assocs) - len(items); orphans > 0 {
		b.logger.Debug("associations without a live asset", "count", orphans)
	}
	return items, nil
}

// attachThumbnails fills Thumbnail and BlurHash with bounded concurrency.
func (b *Builder) attachThumbnails(ctx context.Context, items []domain.FeedItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.FetchConcurrency)

	for i := range items {
		g.Go(func() error {
			t, err := b.thumbnail(gctx, items[i].AssetID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.logger.Warn("thumbnail unavailable",
					"asset_id", items[i].AssetID,
					"error", err,
				)
				return nil
			}
			items[i].Thumbnail = t.data
			items[i].BlurHash = t.blurHash
			return nil
		})
	}

	return g.Wait()
}

// Thumbnail returns the cached or freshly built thumbnail of an asset.
func (b *Builder) Thumbnail(ctx context.Context, assetID string) ([]byte, error) {
	t, err := b.thumbnail(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return t.data, nil
}

func (b *Builder) thumbnail(ctx context.Context, assetID string) (thumb, error) {
	if cached, found := b.cache.Get(assetID); found {
		return cached.(thumb), nil
	}

	data, err := b.assets.FetchImage(ctx, assetID, domain.Square(b.opts.ThumbnailSize))
	if err != nil {
		return thumb{}, err
	}

	hash, err := b.assets.BlurHash(ctx, assetID)
	if err != nil {
		// The thumbnail is still useful without a placeholder.
		b.logger.Debug("blurhash failed", "asset_id", assetID, "error", err)
	}

	// A fetch the caller abandoned must not populate the cache.
	if err := ctx.Err(); err != nil {
		return thumb{}, err
	}

	t := thumb{data: data, blurHash: hash}
	b.cache.Set(assetID, t, cache.DefaultExpiration)
	return t, nil
}

// Catalog returns each distinct (name, color) pair over all snapshots with
// the number of associations carrying it, sorted by name then color.
// Orphaned associations are counted too: the catalog describes history.
//
// Colors that differ only below hex precision share an entry; the entry
// reports the lowest of them so the result does not depend on map order.
func (b *Builder) Catalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	assocs, err := b.associations.ListAssociations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}

	type key struct {
		name string
		hex  string
	}
	index := make(map[key]int)
	var entries []domain.CatalogEntry

	for _, snap := range assocs {
		k := key{name: snap.Name, hex: snap.Color.Hex()}
		if i, ok := index[k]; ok {
			entries[i].Count++
			if colorLess(snap.Color, entries[i].Color) {
				entries[i].Color = snap.Color
			}
			continue
		}
		index[k] = len(entries)
		entries = append(entries, domain.CatalogEntry{Name: snap.Name, Color: snap.Color, Count: 1})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Color.Hex() < entries[j].Color.Hex()
	})

	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	return entries, nil
}

func colorLess(a, b color.RGBA) bool {
	switch {
	case a.Red != b.Red:
		return a.Red < b.Red
	case a.Green != b.Green:
		return a.Green < b.Green
	case a.Blue != b.Blue:
		return a.Blue < b.Blue
	default:
		return a.Alpha < b.Alpha
	}
}

// Preview fetches the full-resolution image of a tagged asset.
// Nothing is cached, and a cancelled ctx stops the work and returns its
// error.
func (b *Builder) Preview(ctx context.Context, assetID string) (domain.Preview, error) {
	asset, err := b.assets.Stat(assetID)
	if err != nil {
		return domain.Preview{}, err
	}

	assocs, err := b.associations.ListAssociations(ctx)
	if err != nil {
		return domain.Preview{}, fmt.Errorf("list associations: %w", err)
	}
	snap, ok := assocs[assetID]
	if !ok {
		return domain.Preview{}, ErrNotTagged
	}

	data, err := b.assets.FetchImage(ctx, assetID, domain.FullSize)
	if err != nil {
		return domain.Preview{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Preview{}, err
	}

	return domain.Preview{
		AssetID:   assetID,
		TagName:   snap.Name,
		Color:     snap.Color,
		CreatedAt: asset.CreatedAt,
		Image:     data,
	}, nil
}

// Invalidate drops the cached thumbnail of an asset.
func (b *Builder) Invalidate(assetID string) {
	b.cache.Delete(assetID)
}

// InvalidateAll drops every cached thumbnail.
func (b *Builder) InvalidateAll() {
	b.cache.Flush()
}

// CachedCount returns the number of cached thumbnails.
func (b *Builder) CachedCount() int {
	return b.cache.ItemCount()
}

package service

import (
	"context"
	"log/slog"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/watcher"
)

// ThumbnailCache drops cached thumbnails.
type ThumbnailCache interface {
	Invalidate(assetID string)
	InvalidateAll()
}

// LibraryMonitor reacts to photos appearing in or leaving the asset
// directory outside the capture flow (copied in, deleted by hand, synced).
type LibraryMonitor struct {
	cache  ThumbnailCache
	events EventEmitter
	logger *slog.Logger
}

// NewLibraryMonitor creates a new library monitor.
func NewLibraryMonitor(cache ThumbnailCache, events EventEmitter, logger *slog.Logger) *LibraryMonitor {
	return &LibraryMonitor{cache: cache, events: events, logger: logger}
}

// ProcessEvent handles one watcher event. Files that are not stored assets
// are ignored.
func (m *LibraryMonitor) ProcessEvent(ctx context.Context, event watcher.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	assetID, ok := assets.AssetIDFromPath(event.Path)
	if !ok {
		m.logger.Debug("ignoring non-asset file", "path", event.Path, "type", event.Type.String())
		return nil
	}

	// A file replaced in place keeps its id, so stale thumbnails go either way.
	m.cache.Invalidate(assetID)

	var added, removed []string
	switch event.Type {
	case watcher.EventAdded:
		added = []string{assetID}
	case watcher.EventRemoved:
		removed = []string{assetID}
	default:
		return nil
	}

	m.events.Emit(sse.NewLibraryChangedEvent(added, removed))
	m.logger.Debug("library changed", "asset_id", assetID, "type", event.Type.String())
	return nil
}

// HandleWatchError reacts to a watcher failure. Events may have been lost
// (an overflowed inotify queue, say), so every cached thumbnail is dropped
// and clients are told to reload.
func (m *LibraryMonitor) HandleWatchError(err error) {
	m.logger.Warn("library watcher error, dropping thumbnail cache", "error", err)
	m.cache.InvalidateAll()
	m.events.Emit(sse.NewLibraryChangedEvent(nil, nil))
}

// Run feeds events from w into ProcessEvent until ctx is cancelled or the
// watcher is stopped.
func (m *LibraryMonitor) Run(ctx context.Context, w *watcher.Watcher) {
	for {
		select {
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			if err := m.ProcessEvent(ctx, event); err != nil {
				m.logger.Warn("failed to process library event",
					"error", err,
					"type", event.Type.String(),
					"path", event.Path,
				)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			m.HandleWatchError(err)
		case <-ctx.Done():
			return
		}
	}
}

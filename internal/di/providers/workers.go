package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/logger"
	"github.com/dunbarapp/dunbar-server/internal/service"
	"github.com/dunbarapp/dunbar-server/internal/watcher"
)

// FileWatcherHandle wraps the file watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher provides the photos directory watcher.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	lib := do.MustInvoke[*assets.Library](i)
	builder := do.MustInvoke[*gallery.Builder](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	if !cfg.Watcher.Enabled {
		log.Info("File watcher disabled by configuration")
		return &FileWatcherHandle{}, nil
	}

	w, err := watcher.New(log.Component("watcher"), watcher.Options{
		SettleDelay: cfg.Watcher.SettleDelay,
		Extensions:  []string{assets.FileExt},
	})
	if err != nil {
		return nil, err
	}

	if err := w.Watch(lib.Dir()); err != nil {
		_ = w.Stop()
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	monitor := service.NewLibraryMonitor(builder, sseHandle.Manager, log.Component("library"))
	go monitor.Run(ctx, w)

	log.Info("File watcher started", "path", lib.Dir())

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}

package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/logger"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("events"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the preference database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Storage.DatabasePath()
	db, err := store.New(dbPath, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideRegistry provides the tag registry, seeding defaults on first run.
func ProvideRegistry(i do.Injector) (*registry.Registry, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	reg, err := registry.New(context.Background(), storeHandle.Store, log.Component("registry"))
	if err != nil {
		return nil, err
	}

	log.Info("Tag registry loaded", "tags", reg.Len())
	return reg, nil
}

// ProvideAssetLibrary provides the on-disk photo library.
func ProvideAssetLibrary(i do.Injector) (*assets.Library, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	lib, err := assets.New(cfg.Storage.BasePath, log.Component("assets"))
	if err != nil {
		return nil, err
	}

	log.Info("Photo library ready", "path", lib.Dir())
	return lib, nil
}

// Package assets stores captured photos on disk and serves them back at
// thumbnail or full resolution.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/dunbarapp/dunbar-server/internal/domain"
	"github.com/dunbarapp/dunbar-server/internal/id"
)

// FileExt is the extension of stored asset files.
const FileExt = ".img"

// Library errors.
var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidImage  = errors.New("data is not a supported image")
	ErrEmptyImage    = errors.New("image data cannot be empty")
	ErrInvalidID     = errors.New("invalid asset id")
)

// Library manages photo files in a single directory.
// Thread-safe for concurrent operations.
type Library struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
}

// New creates a Library rooted at {basePath}/photos, creating the
// directory if needed.
func New(basePath string, logger *slog.Logger) (*Library, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir := filepath.Join(basePath, "photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photos directory: %w", err)
	}

	return &Library{dir: dir, logger: logger}, nil
}

// Dir returns the directory holding asset files.
func (l *Library) Dir() string {
	return l.dir
}

// Path returns the full filesystem path for an asset.
func (l *Library) Path(assetID string) string {
	return filepath.Join(l.dir, assetID+FileExt)
}

// WriteImage stores a new photo and returns its asset ID.
// The bytes are kept as given; they must decode as JPEG, PNG, GIF or WebP.
func (l *Library) WriteImage(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	assetID := id.NewAssetID()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Write to a temp file and rename so watchers never see a partial file.
	tmp, err := os.CreateTemp(l.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	if err := os.Rename(tmpPath, l.Path(assetID)); err != nil {
		return "", fmt.Errorf("store image file: %w", err)
	}

	l.logger.Debug("asset written",
		"asset_id", assetID,
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
		"size", len(data),
	)
	return assetID, nil
}

// Enumerate lists every asset in ascending creation order.
// Assets created at the same instant are ordered by ID.
func (l *Library) Enumerate(ctx context.Context) ([]domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	entries, err := os.ReadDir(l.dir)
	l.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("read photos directory: %w", err)
	}

	assets := make([]domain.Asset, 0, len(entries))
	for _, e := range entries {
		assetID, ok := assetIDFromName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		assets = append(assets, domain.Asset{ID: assetID, CreatedAt: info.ModTime()})
	}

	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.Before(assets[j].CreatedAt)
		}
		return assets[i].ID < assets[j].ID
	})
	return assets, nil
}

// Stat returns the asset record for assetID.
func (l *Library) Stat(assetID string) (domain.Asset, error) {
	if !id.IsAssetID(assetID) {
		return domain.Asset{}, ErrInvalidID
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	info, err := os.Stat(l.Path(assetID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Asset{}, ErrAssetNotFound
		}
		return domain.Asset{}, fmt.Errorf("stat asset %s: %w", assetID, err)
	}
	return domain.Asset{ID: assetID, CreatedAt: info.ModTime()}, nil
}

// Exists checks if an asset is present.
func (l *Library) Exists(assetID string) bool {
	_, err := l.Stat(assetID)
	return err == nil
}

// SetCreatedAt overrides the recorded creation time of an asset.
// Used when importing photos whose capture time is known.
func (l *Library) SetCreatedAt(assetID string, at time.Time) error {
	if !id.IsAssetID(assetID) {
		return ErrInvalidID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Chtimes(l.Path(assetID), at, at); err != nil {
		if os.IsNotExist(err) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("set asset time: %w", err)
	}
	return nil
}

func (l *Library) read(assetID string) ([]byte, error) {
	if !id.IsAssetID(assetID) {
		return nil, ErrInvalidID
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	data, err := os.ReadFile(l.Path(assetID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("read asset %s: %w", assetID, err)
	}
	return data, nil
}

// assetIDFromName extracts the asset ID from a stored file name.
func assetIDFromName(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, FileExt)
	if !ok || !id.IsAssetID(base) {
		return "", false
	}
	return base, true
}

// AssetIDFromPath returns the asset ID of a stored asset file, or false
// when path names anything else (temp files, foreign files).
func AssetIDFromPath(path string) (string, bool) {
	return assetIDFromName(filepath.Base(path))
}

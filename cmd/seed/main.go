// Package main imports a directory of images into the photo library, tagging
// each one, so a fresh install has something to show.
//
// Usage:
//
//	DATA_PATH=~/Dunbar go run ./cmd/seed --tag Travel ./pictures
//	DATA_PATH=~/Dunbar go run ./cmd/seed --dry-run ./pictures
//
// The tag is created with its derived color if no tag by that name exists.
// Stop the server first; the database is locked while it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/service"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/store"
)

var (
	tagName = flag.String("tag", "Personal", "Tag to record against every imported photo")
	dryRun  = flag.Bool("dry-run", false, "List the files that would be imported")
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// noopEmitter drops events; nobody is subscribed while seeding.
type noopEmitter struct{}

func (noopEmitter) Emit(sse.Event) {}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: seed [--tag NAME] [--dry-run] <image-dir>")
		os.Exit(1)
	}

	files, err := findImages(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read %s: %v", flag.Arg(0), err)
	}
	fmt.Printf("Found %d images\n", len(files))

	if *dryRun {
		for _, f := range files {
			fmt.Println("  " + f)
		}
		return
	}

	basePath := os.Getenv("DATA_PATH")
	if basePath == "" {
		basePath = os.ExpandEnv("$HOME/Dunbar")
	}
	storage := config.StorageConfig{BasePath: basePath}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	s, err := store.New(storage.DatabasePath(), logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	reg, err := registry.New(ctx, s, logger)
	if err != nil {
		log.Fatalf("Failed to load tags: %v", err)
	}

	tag, ok := reg.FindByName(*tagName)
	if !ok {
		tag, err = reg.Add(ctx, *tagName, color.ForName(*tagName))
		if err != nil {
			log.Fatalf("Failed to create tag %q: %v", *tagName, err)
		}
		fmt.Printf("Created tag %s (%s)\n", tag.Name, tag.Color.Hex())
	}

	lib, err := assets.New(basePath, logger)
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}

	capture := service.NewCaptureService(reg, lib, s, noopEmitter{}, logger)

	imported, failed := 0, 0
	for _, f := range files {
		assetID, err := importImage(ctx, capture, lib, f, tag.ID)
		if err != nil {
			log.Printf("skip %s: %v", f, err)
			failed++
			continue
		}
		imported++
		fmt.Printf("  %s -> %s\n", filepath.Base(f), assetID)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Tag: %s\n", tag.Name)
	fmt.Printf("Imported: %d\n", imported)
	fmt.Printf("Failed: %d\n", failed)
}

// importImage saves one file under tagID. The photo keeps the source file's
// modification time as its creation time, so the feed orders imports by
// when they were taken rather than when the seed ran.
func importImage(ctx context.Context, capture *service.CaptureService, lib *assets.Library, path, tagID string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	assoc, err := capture.SaveTagged(ctx, data, tagID)
	if err != nil {
		return "", err
	}
	if err := lib.SetCreatedAt(assoc.AssetID, info.ModTime()); err != nil {
		return assoc.AssetID, fmt.Errorf("keep capture time: %w", err)
	}
	return assoc.AssetID, nil
}

// findImages lists image files directly inside dir, in name order.
func findImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Package main dumps the preference database: the tag registry and a
// summary of recorded photo tags.
//
// Usage:
//
//	DB_PATH=~/Dunbar/prefs.db go run ./cmd/dbinspect
//
// Stop the server first; the database is locked while it runs.
package main

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/dunbarapp/dunbar-server/internal/store"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Dunbar/prefs.db")
	}

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	fmt.Println("=== Tag Registry ===")
	tags, found, err := s.LoadTags(ctx)
	if err != nil {
		log.Fatalf("Failed to load tags: %v", err)
	}
	if !found {
		fmt.Println("(never saved; defaults will be seeded on next start)")
	}
	for i, tag := range tags {
		fmt.Printf("[%d] %s  %s  id=%s\n", i, tag.Color.Hex(), tag.Name, tag.ID)
	}
	fmt.Println()

	associations, err := s.ListAssociations(ctx)
	if err != nil {
		log.Fatalf("Failed to list photo tags: %v", err)
	}

	type bucket struct {
		name, color string
		count       int
		legacy      int
	}
	buckets := map[string]*bucket{}
	for _, snap := range associations {
		key := snap.Name + "\x00" + snap.Color.Hex()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: snap.Name, color: snap.Color.Hex()}
			buckets[key] = b
		}
		b.count++
		if snap.Legacy {
			b.legacy++
		}
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	slices.SortFunc(sorted, func(a, b *bucket) int {
		return cmp.Or(cmp.Compare(b.count, a.count), cmp.Compare(a.name, b.name))
	})

	fmt.Println("=== Tagged Photos ===")
	for _, b := range sorted {
		fmt.Printf("%-24s %s  %d photos", b.name, b.color, b.count)
		if b.legacy > 0 {
			fmt.Printf(" (%d legacy)", b.legacy)
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Println("=== Summary ===")
	fmt.Printf("Tags: %d\n", len(tags))
	fmt.Printf("Tagged photos: %d\n", len(associations))
	fmt.Printf("Distinct snapshots: %d\n", len(buckets))
}

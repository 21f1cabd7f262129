package domain

import (
	"time"

	"github.com/dunbarapp/dunbar-server/internal/color"
)

// FeedItem is one tagged photo in the chronological feed.
type FeedItem struct {
	AssetID   string     `json:"asset_id"`
	TagName   string     `json:"tag_name"`
	Color     color.RGBA `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	Thumbnail []byte     `json:"thumbnail,omitempty"`
	BlurHash  string     `json:"blur_hash,omitempty"`
}

// CatalogEntry is one distinct (name, color) pair observed across snapshots.
type CatalogEntry struct {
	Name  string     `json:"name"`
	Color color.RGBA `json:"color"`
	Count int        `json:"count"`
}

// Preview is a full-resolution image opened from the feed.
type Preview struct {
	AssetID   string     `json:"asset_id"`
	TagName   string     `json:"tag_name"`
	Color     color.RGBA `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	Image     []byte     `json:"image"`
}

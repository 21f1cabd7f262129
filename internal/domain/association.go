package domain

import "github.com/dunbarapp/dunbar-server/internal/color"

// Snapshot is the denormalized copy of a tag recorded when a photo is tagged.
// It is history: later registry edits never rewrite it, and nothing links it
// back to a registry Tag except the matching name.
type Snapshot struct {
	Name  string     `json:"name"`
	Color color.RGBA `json:"color"`

	// Legacy is set when the stored record carried no color data and
	// Color holds the placeholder.
	Legacy bool `json:"legacy,omitempty"`
}

// Association is the persisted fact that an asset was tagged with a snapshot.
type Association struct {
	AssetID  string   `json:"asset_id"`
	Snapshot Snapshot `json:"snapshot"`
}

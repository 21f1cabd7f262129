package domain

import (
	"time"

	"github.com/dunbarapp/dunbar-server/internal/color"
)

// Tag is an editable, named, colored label in the registry.
// Names are not required to be unique; the registry only guarantees unique IDs.
type Tag struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     color.RGBA `json:"color"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// Snapshot captures the tag's name and color as they are right now.
func (t *Tag) Snapshot() Snapshot {
	return Snapshot{Name: t.Name, Color: t.Color}
}

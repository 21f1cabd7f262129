package domain

import "time"

// Asset is a photo held by the asset library.
type Asset struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageSize is a bounding box for an image fetch.
// The zero value requests the full-resolution original.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FullSize requests the original bytes.
var FullSize = ImageSize{}

// IsFull reports whether the size requests the original image.
func (s ImageSize) IsFull() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Square returns a size with equal edges.
func Square(edge int) ImageSize {
	return ImageSize{Width: edge, Height: edge}
}

package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// thumbnailQuality is the JPEG quality of scaled images.
const thumbnailQuality = 85

// FetchImage returns an asset's image bounded by size.
// domain.FullSize returns the stored bytes untouched. Any other size decodes
// the image, scales it to fit inside the box keeping its aspect ratio, and
// re-encodes it as JPEG. Images already inside the box are not enlarged.
func (l *Library) FetchImage(ctx context.Context, assetID string, size domain.ImageSize) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if size.IsFull() {
		return l.read(assetID)
	}

	src, err := l.decode(ctx, assetID)
	if err != nil {
		return nil, err
	}

	dst := scaleToFit(src, size)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// decode reads and decodes an asset, checking ctx again afterwards since
// decoding is the slow part.
func (l *Library) decode(ctx context.Context, assetID string) (image.Image, error) {
	data, err := l.read(assetID)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", assetID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// scaleToFit resizes img to fit inside box, keeping its aspect ratio.
func scaleToFit(img image.Image, box domain.ImageSize) image.Image {
	bounds := img.Bounds()
	w, h := fitDimensions(bounds.Dx(), bounds.Dy(), box.Width, box.Height)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// fitDimensions returns the largest size with the aspect ratio of srcW x srcH
// that fits in maxW x maxH, never larger than the source and never below 1.
func fitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	w, h := maxW, srcH*maxW/srcW
	if h > maxH {
		w, h = srcW*maxH/srcH, maxH
	}
	return max(w, 1), max(h, 1)
}

package assets

import (
	"context"
	"fmt"

	"github.com/bbrks/go-blurhash"

	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// blurHashSize is the target size for BlurHash computation.
// A small thumbnail produces nearly identical results in milliseconds.
const blurHashSize = 64

// BlurHash computes a compact placeholder string for an asset, shown while
// the thumbnail loads. Uses 4x3 components (~20-30 chars).
func (l *Library) BlurHash(ctx context.Context, assetID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := l.decode(ctx, assetID)
	if err != nil {
		return "", err
	}

	hash, err := blurhash.Encode(4, 3, scaleToFit(img, domain.Square(blurHashSize)))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

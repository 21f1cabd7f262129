// Package id generates identifiers for tags, assets and event subscribers.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for nanoid-based identifiers.
const (
	PrefixTag    = "tag"
	PrefixClient = "client"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "tag-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id was generated with the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-") && len(id) > len(prefix)+1
}

// NewAssetID returns an upper-case UUID, the shape photo libraries use
// for local asset identifiers.
func NewAssetID() string {
	return strings.ToUpper(uuid.NewString())
}

// IsAssetID reports whether s parses as an asset identifier.
// Asset IDs double as file names, so anything else is rejected.
func IsAssetID(s string) bool {
	if s != strings.ToUpper(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

package store

import (
	"strconv"
	"time"
)

// Well-known preference keys. Each holds one JSON blob.
const (
	// keySavedTags maps asset ID to the tag snapshot recorded for it.
	keySavedTags = "prefs:savedTags"
	// keyTags holds the ordered tag registry.
	keyTags = "prefs:tags"
	// quarantinePrefix holds blobs that could not be parsed at all.
	quarantinePrefix = "quarantine:"
)

// quarantineKey builds the key a corrupt blob is moved to before it is replaced.
func quarantineKey(key string, at time.Time) []byte {
	return []byte(quarantinePrefix + key + ":" + strconv.FormatInt(at.UnixNano(), 10))
}

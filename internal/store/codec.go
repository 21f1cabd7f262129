package store

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"math"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
)

// Two record shapes have been written under keySavedTags over time:
//
//	{"<assetId>": "<tagName>"}                                        legacy, name only
//	{"<assetId>": {"name": "...", "red": 0.1, "green": 0.2, "blue": 0.3}} name + RGB
//
// New writes use the second shape plus "alpha".

// snapshotRecord is the canonical on-disk shape of one association.
type snapshotRecord struct {
	Name  string  `json:"name"`
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Alpha float64 `json:"alpha"`
}

func encodeRecord(snap domain.Snapshot) snapshotRecord {
	return snapshotRecord{
		Name:  snap.Name,
		Red:   snap.Color.Red,
		Green: snap.Color.Green,
		Blue:  snap.Color.Blue,
		Alpha: snap.Color.Alpha,
	}
}

// decodeRecord converts one raw blob value into a snapshot.
// ok is false when the value carries no usable tag name.
func decodeRecord(v any) (snap domain.Snapshot, ok bool) {
	switch rec := v.(type) {
	case string:
		return domain.Snapshot{Name: rec, Color: color.Placeholder, Legacy: true}, true

	case map[string]any:
		name, ok := rec["name"].(string)
		if !ok {
			return domain.Snapshot{}, false
		}

		r, okR := channel(rec, "red")
		g, okG := channel(rec, "green")
		b, okB := channel(rec, "blue")
		if !okR || !okG || !okB {
			return domain.Snapshot{Name: name, Color: color.Placeholder, Legacy: true}, true
		}

		a, okA := channel(rec, "alpha")
		if !okA {
			a = 1
		}
		return domain.Snapshot{Name: name, Color: color.RGBA{Red: r, Green: g, Blue: b, Alpha: a}}, true

	case snapshotRecord:
		// Values written in this process before a round trip through JSON.
		return domain.Snapshot{
			Name:  rec.Name,
			Color: color.RGBA{Red: rec.Red, Green: rec.Green, Blue: rec.Blue, Alpha: rec.Alpha},
		}, true

	default:
		return domain.Snapshot{}, false
	}
}

// channel reads a numeric color channel, rejecting values outside [0, 1].
func channel(rec map[string]any, key string) (float64, bool) {
	v, ok := rec[key].(float64)
	if !ok || math.IsNaN(v) || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}

// blobOptions accept what older writers produced: invalid UTF-8 is replaced
// with U+FFFD and a repeated asset key keeps its last value. Either would
// otherwise fail the whole blob for the sake of one entry.
var blobOptions = json.JoinOptions(
	jsontext.AllowInvalidUTF8(true),
	jsontext.AllowDuplicateNames(true),
)

// parseBlob parses the association blob into raw values keyed by asset ID.
// A nil or empty blob yields an empty map. Only input that is not a JSON
// object at all is an error.
func parseBlob(data []byte) (map[string]any, error) {
	raw := make(map[string]any)
	if len(data) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw, blobOptions); err != nil {
		return nil, fmt.Errorf("parse association blob: %w", err)
	}
	if raw == nil {
		// The blob was JSON null.
		raw = make(map[string]any)
	}
	return raw, nil
}

// decodeAll converts raw blob values to snapshots, skipping entries that
// cannot be decoded. It returns the asset IDs that were skipped.
func decodeAll(raw map[string]any) (map[string]domain.Snapshot, []string) {
	out := make(map[string]domain.Snapshot, len(raw))
	var skipped []string
	for assetID, v := range raw {
		if assetID == "" {
			skipped = append(skipped, assetID)
			continue
		}
		snap, ok := decodeRecord(v)
		if !ok {
			skipped = append(skipped, assetID)
			continue
		}
		out[assetID] = snap
	}
	return out, skipped
}

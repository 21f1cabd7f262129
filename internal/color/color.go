// Package color models tag colors as four normalized channels.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// RGBA is a color with red, green, blue and opacity channels in [0, 1].
type RGBA struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
	Alpha float64 `json:"alpha"`
}

// Palette used by the default tags. Values match the platform system colors.
var (
	Blue   = RGBA{Red: 0, Green: 0.478, Blue: 1, Alpha: 1}
	Green  = RGBA{Red: 0.204, Green: 0.780, Blue: 0.349, Alpha: 1}
	Orange = RGBA{Red: 1, Green: 0.584, Blue: 0, Alpha: 1}

	// Placeholder is shown for snapshots recorded without color data.
	Placeholder = RGBA{Red: 0.557, Green: 0.557, Blue: 0.576, Alpha: 1}
)

// Opaque returns an RGBA with full opacity.
func Opaque(r, g, b float64) RGBA {
	return RGBA{Red: r, Green: g, Blue: b, Alpha: 1}
}

// Validate reports an error if any channel is outside [0, 1] or NaN.
func (c RGBA) Validate() error {
	channels := []struct {
		name string
		v    float64
	}{
		{"red", c.Red},
		{"green", c.Green},
		{"blue", c.Blue},
		{"alpha", c.Alpha},
	}
	for _, ch := range channels {
		if math.IsNaN(ch.v) || ch.v < 0 || ch.v > 1 {
			return fmt.Errorf("%s channel %v outside [0,1]", ch.name, ch.v)
		}
	}
	return nil
}

// Hex formats the color as #RRGGBB, or #RRGGBBAA when not fully opaque.
func (c RGBA) Hex() string {
	r, g, b, a := to8(c.Red), to8(c.Green), to8(c.Blue), to8(c.Alpha)
	if a == 0xFF {
		return fmt.Sprintf("#%02X%02X%02X", r, g, b)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", r, g, b, a)
}

// ParseHex parses #RGB, #RRGGBB or #RRGGBBAA (the # is optional).
func ParseHex(s string) (RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "FF"
	}
	if len(h) != 8 {
		return RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return RGBA{
		Red:   float64(uint8(v>>24)) / 255,
		Green: float64(uint8(v>>16)) / 255,
		Blue:  float64(uint8(v>>8)) / 255,
		Alpha: float64(uint8(v)) / 255,
	}, nil
}

// ForName derives a consistent color from a tag name.
// Used when a tag is created without an explicit color.
func ForName(name string) RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name)) // never fails
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.65, 0.55)
	return Opaque(r, g, b)
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// hslToRGB converts HSL to RGB channels in [0, 1].
// h: hue (0-360), s: saturation (0-1), l: lightness (0-1).
func hslToRGB(h, s, l float64) (r, g, b float64) {
	h /= 360.0

	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = hueToRGB(p, q, h+1.0/3.0)
	g = hueToRGB(p, q, h)
	b = hueToRGB(p, q, h-1.0/3.0)
	return r, g, b
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

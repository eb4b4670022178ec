// Package preview implements the QR preview controller: it owns the
// current set of user-editable encoding parameters, keeps a shared pixel
// surface synchronized with them through an external QR encoder, and
// serializes the surface to PNG for export.
package preview

import (
	"fmt"
	"image/color"
	"strings"
)

// Size bounds for the output square, in pixels. Values outside the range
// are clamped, matching the range input on the studio page.
const (
	MinSize = 64
	MaxSize = 1024
)

// Level is a QR error-correction level. Higher levels survive more
// damage at the cost of payload capacity.
type Level string

const (
	LevelLow      Level = "low"      // ~7% recovery
	LevelMedium   Level = "medium"   // ~15% recovery
	LevelQuartile Level = "quartile" // ~25% recovery
	LevelHigh     Level = "high"     // ~30% recovery
)

// ParseLevel converts a string into a Level. Matching is
// case-insensitive and accepts the single-letter forms L/M/Q/H.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "l":
		return LevelLow, nil
	case "medium", "m":
		return LevelMedium, nil
	case "quartile", "q":
		return LevelQuartile, nil
	case "high", "h":
		return LevelHigh, nil
	default:
		return "", fmt.Errorf("unknown error-correction level %q", s)
	}
}

// Request is the current set of user-chosen QR parameters. Exactly one
// Request is current at any time; every parameter change produces a new
// Request that supersedes the prior one.
type Request struct {
	Payload    string `json:"payload"`
	Size       int    `json:"size"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Level      Level  `json:"level"`
}

// DefaultRequest returns the parameters used on initial mount.
func DefaultRequest() Request {
	return Request{
		Payload:    "https://example.com",
		Size:       256,
		Foreground: "#000000",
		Background: "#ffffff",
		Level:      LevelMedium,
	}
}

// Normalized returns a copy of r with the size clamped to
// [MinSize, MaxSize], an empty payload replaced by a single space so the
// encoder never sees zero-length input, and blank colors or an invalid
// level replaced by the defaults.
func (r Request) Normalized() Request {
	if r.Payload == "" {
		r.Payload = " "
	}
	if r.Size < MinSize {
		r.Size = MinSize
	}
	if r.Size > MaxSize {
		r.Size = MaxSize
	}
	def := DefaultRequest()
	if r.Foreground == "" {
		r.Foreground = def.Foreground
	}
	if r.Background == "" {
		r.Background = def.Background
	}
	if _, err := ParseLevel(string(r.Level)); err != nil {
		r.Level = def.Level
	}
	return r
}

// ParseHexColor parses "#rgb" and "#rrggbb" color strings, the formats
// an HTML color input supplies. The leading '#' is optional.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")

	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
		// Expand each nibble: "f" means 0xff.
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
		}
	default:
		return color.RGBA{}, fmt.Errorf("parse color %q: want #rgb or #rrggbb", s)
	}

	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

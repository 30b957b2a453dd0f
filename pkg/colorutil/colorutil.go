// Package colorutil provides shared color utilities for the document viewer.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Annotation palette used throughout the application.
var (
	Ink         = color.RGBA{R: 0x19, G: 0x71, B: 0xC2, A: 255}
	Highlighter = color.RGBA{R: 0xFF, G: 0xD4, B: 0x3B, A: 255}
	AnchorPin   = color.RGBA{R: 0xE0, G: 0x3E, B: 0x3E, A: 255}
	Paper       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	PageShadow  = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 255}
)

// ParseHex parses a CSS-style hex color: #rgb, #rrggbb, or #rrggbbaa.
// The leading # is optional.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(h) {
	case 3:
		var r, g, b uint8
		if _, err := fmt.Sscanf(h, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}, nil
	case 6:
		var r, g, b uint8
		if _, err := fmt.Sscanf(h, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	case 8:
		var r, g, b, a uint8
		if _, err := fmt.Sscanf(h, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return color.RGBA{R: r, G: g, B: b, A: a}, nil
	}
	return color.RGBA{}, fmt.Errorf("invalid hex color %q: want #rgb, #rrggbb, or #rrggbbaa", s)
}

// ParseHexDefault parses a hex color, falling back to def on error.
// Annotation colors are host-supplied strings and must never abort a render.
func ParseHexDefault(s string, def color.RGBA) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		return def
	}
	return c
}

// FormatHex formats a color as #rrggbb, or #rrggbbaa when not opaque.
func FormatHex(c color.Color) string {
	r, g, b, a := c.RGBA()
	if a == 0xFFFF {
		return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
}

// WithAlpha returns c with its alpha replaced.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// Over source-over blends src onto dst, treating both as unpremultiplied.
// Used for the translucent highlighter overlay.
func Over(dst, src color.RGBA) color.RGBA {
	sa := uint32(src.A)
	da := uint32(255 - src.A)
	return color.RGBA{
		R: uint8((uint32(src.R)*sa + uint32(dst.R)*da) / 255),
		G: uint8((uint32(src.G)*sa + uint32(dst.G)*da) / 255),
		B: uint8((uint32(src.B)*sa + uint32(dst.B)*da) / 255),
		A: uint8(sa + uint32(dst.A)*da/255),
	}
}

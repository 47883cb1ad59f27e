package photo

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownColor is returned for a background that is not a supported name,
// hex code or RGB triple.
var ErrUnknownColor = errors.New("unknown background color")

// DefaultBackground is used when a spec leaves the background empty.
const DefaultBackground = "white"

var namedColors = map[string]color.NRGBA{
	"white":     {R: 255, G: 255, B: 255, A: 255},
	"lightgrey": {R: 211, G: 211, B: 211, A: 255},
	"lightgray": {R: 211, G: 211, B: 211, A: 255},
	"blue":      {R: 0, G: 0, B: 255, A: 255},
	"green":     {R: 0, G: 128, B: 0, A: 255},
	"red":       {R: 255, G: 0, B: 0, A: 255},
	"yellow":    {R: 255, G: 255, B: 0, A: 255},
}

// BackgroundNames lists the symbolic background colors offered to users.
func BackgroundNames() []string {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		if name == "lightgray" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseColor accepts a name ("lightgrey"), "#rgb", "#rrggbb", "r,g,b" or
// "rgb(r, g, b)".
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		v = DefaultBackground
	}
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHex(v[1:], s)
	}
	v = strings.TrimSuffix(strings.TrimPrefix(v, "rgb("), ")")
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("%q: %w", s, ErrUnknownColor)
	}
	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%q: %w", s, ErrUnknownColor)
		}
		rgb[i] = uint8(n)
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func parseHex(h, orig string) (color.NRGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%q: %w", orig, ErrUnknownColor)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%q: %w", orig, ErrUnknownColor)
	}
	return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}

package palette

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// DefaultColorCount is the palette size used when callers don't ask for one.
const DefaultColorCount = 10

var ErrSwatchOutOfRange = eris.New("swatch index out of range")

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Palette is an ordered colour list. Index 0 is the primary colour.
type Palette []Color

// FromHex parses a #rrggbb string.
func FromHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, eris.Wrapf(err, "parse colour %q", s)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// Colorful converts the colour to the normalized float form used for shading.
func (c Color) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Hex returns the #rrggbb display form.
func (c Color) Hex() string {
	return c.Colorful().Hex()
}

// Clone returns an independent copy of the palette.
func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

// Promote returns a copy of p with the entry at idx moved to the front. The relative
// order of the remaining entries is preserved.
func (p Palette) Promote(idx int) (Palette, error) {
	if idx < 0 || idx >= len(p) {
		return nil, eris.Wrapf(ErrSwatchOutOfRange, "promote %d of %d", idx, len(p))
	}

	out := make(Palette, 0, len(p))
	out = append(out, p[idx])
	out = append(out, p[:idx]...)
	out = append(out, p[idx+1:]...)
	return out, nil
}

// Hex returns the display form of every entry.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

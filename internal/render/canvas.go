package render

import "github.com/lucasb-eyer/go-colorful"

// Background is the clear colour of the surface.
var Background = colorful.Color{R: 0x05 / 255.0, G: 0x05 / 255.0, B: 0x05 / 255.0}

const glyphRamp = " .:-=+*#%@"

// Cell is one character position on the canvas.
type Cell struct {
	Color colorful.Color
	Glyph rune
}

// Canvas is a finished frame, row-major.
type Canvas struct {
	Width  int
	Height int
	Cells  []Cell
}

// At returns the cell at column x, row y.
func (c *Canvas) At(x, y int) Cell {
	return c.Cells[y*c.Width+x]
}

// glyphFor picks a denser character for more coverage.
func glyphFor(coverage float64) rune {
	if coverage <= 0 {
		return ' '
	}
	idx := int(coverage * float64(len(glyphRamp)))
	idx = max(1, min(idx, len(glyphRamp)-1))
	return rune(glyphRamp[idx])
}

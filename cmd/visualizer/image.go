package main

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/cybre/chroma-pulse/internal/palette"
)

// loadPalette decodes the image at path and extracts count colours from it.
func loadPalette(path string, count int) (palette.Palette, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", eris.Wrapf(err, "decode image %s", path)
	}
	return palette.Extract(img, count), format, nil
}

package palette

import (
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

const (
	// maxAnalysisSide bounds the longest side of the image that is sampled.
	maxAnalysisSide = 200
	// sampleStride takes every 10th pixel in raster order.
	sampleStride = 10
	quantumStep  = 16
)

type bucket struct {
	color Color
	count int
}

// Extract returns up to count colours ordered by how often their quantization bucket
// occurs in the image. A nil or empty image yields an empty palette.
func Extract(img image.Image, count int) Palette {
	if count <= 0 {
		count = DefaultColorCount
	}

	pix := downscale(img)
	if pix == nil {
		return Palette{}
	}

	index := make(map[Color]int)
	var buckets []bucket
	for i := 0; i+2 < len(pix.Pix); i += sampleStride * 4 {
		key := Color{
			R: quantize(pix.Pix[i]),
			G: quantize(pix.Pix[i+1]),
			B: quantize(pix.Pix[i+2]),
		}
		if idx, ok := index[key]; ok {
			buckets[idx].count++
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, bucket{color: key, count: 1})
	}

	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].count > buckets[b].count
	})

	n := min(count, len(buckets))
	out := make(Palette, n)
	for i := range n {
		out[i] = buckets[i].color
	}
	return out
}

// downscale draws img into a tightly packed straight-alpha buffer whose longest side
// is at most maxAnalysisSide. Smaller images are copied unscaled. Colour channels are
// not premultiplied, so translucent pixels keep their RGB.
func downscale(img image.Image) *image.NRGBA {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	scale := math.Min(1, float64(maxAnalysisSide)/float64(max(w, h)))
	dw := max(1, int(float64(w)*scale))
	dh := max(1, int(float64(h)*scale))

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

func quantize(c uint8) uint8 {
	q := math.Round(float64(c)/quantumStep) * quantumStep
	if q > 255 {
		return 255
	}
	return uint8(q)
}

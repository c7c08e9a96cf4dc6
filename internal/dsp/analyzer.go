package dsp

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/utils"
)

const (
	// FFTSize is the transform window. 512 keeps bass bins narrow enough without adding
	// noticeable latency at common capture rates.
	FFTSize = 512
	// BinCount is the number of magnitude bins in a Frame.
	BinCount = FFTSize / 2

	// BassBin and TrebleBin are the fixed lookups used for the two scalar features.
	BassBin   = 5
	TrebleBin = 100

	defaultMinDecibels = -100.0
	defaultMaxDecibels = -30.0
)

// Frame is one spectrum snapshot in byte magnitudes, indexed by frequency bin. The
// analyzer reuses the backing buffer on every Sample call.
type Frame []uint8

// Level returns bin as a fraction of full scale, or 0 if the bin is absent.
func (f Frame) Level(bin int) float64 {
	if bin < 0 || bin >= len(f) {
		return 0
	}
	return float64(f[bin]) / 255
}

// Source supplies the most recent mono PCM samples to the analyzer.
type Source interface {
	// Window copies the newest len(dst) samples into dst, oldest first, and returns the
	// number of samples written. Unwritten slots are left untouched.
	Window(dst []float64) int
	// Disconnect releases the underlying capture stream.
	Disconnect() error
}

type sourceRef struct {
	src Source
}

// SpectrumAnalyzer turns the connected Source into byte spectrum frames. Sample must be
// called from a single goroutine; Connect and Disconnect may be called from any.
type SpectrumAnalyzer struct {
	source atomic.Pointer[sourceRef]

	window  []float64
	samples []float64
	frame   Frame
	minDB   float64
	dbRange float64
}

// NewSpectrumAnalyzer returns an analyzer with no source connected.
func NewSpectrumAnalyzer() *SpectrumAnalyzer {
	return &SpectrumAnalyzer{
		window:  BlackmanWindow(FFTSize),
		samples: make([]float64, FFTSize),
		frame:   make(Frame, BinCount),
		minDB:   defaultMinDecibels,
		dbRange: defaultMaxDecibels - defaultMinDecibels,
	}
}

// Connect installs src, disconnecting whatever was connected before. A nil src is the
// same as Disconnect.
func (a *SpectrumAnalyzer) Connect(src Source) error {
	var next *sourceRef
	if src != nil {
		next = &sourceRef{src: src}
	}
	prev := a.source.Swap(next)
	if prev == nil {
		return nil
	}
	if err := prev.src.Disconnect(); err != nil {
		return eris.Wrap(err, "disconnect previous audio source")
	}
	return nil
}

// Disconnect drops the current source, if any.
func (a *SpectrumAnalyzer) Disconnect() error {
	return a.Connect(nil)
}

// Connected reports whether a source is installed.
func (a *SpectrumAnalyzer) Connected() bool {
	return a.source.Load() != nil
}

// Sample computes a new frame from the connected source. It returns nil when nothing is
// connected. The returned frame is only valid until the next call.
func (a *SpectrumAnalyzer) Sample() Frame {
	ref := a.source.Load()
	if ref == nil {
		return nil
	}

	clear(a.samples)
	n := ref.src.Window(a.samples)
	if n < len(a.samples) && n > 0 {
		// keep the newest samples at the end of the window
		copy(a.samples[len(a.samples)-n:], a.samples[:n])
		clear(a.samples[:len(a.samples)-n])
	}
	ApplyWindowInPlace(a.samples, a.window)

	spectrum := fft.FFTReal(a.samples)
	scale := 1.0 / float64(FFTSize)
	for i := range a.frame {
		mag := cmplx.Abs(spectrum[i]) * scale
		a.frame[i] = a.toByte(mag)
	}
	return a.frame
}

func (a *SpectrumAnalyzer) toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	scaled := 255 * (db - a.minDB) / a.dbRange
	return uint8(utils.Clamp(math.Floor(scaled), 0.0, 255.0))
}

// AverageMagnitude returns the arithmetic mean over all bins of frame.
func AverageMagnitude(frame Frame) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum int
	for _, v := range frame {
		sum += int(v)
	}
	return float64(sum) / float64(len(frame))
}

// ToMono averages interleaved multi-channel data into a mono frame.
func ToMono(samples []float32, channels int, dst []float64) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frameLen := len(samples) / channels
	if cap(dst) < frameLen {
		dst = make([]float64, frameLen)
	} else {
		dst = dst[:frameLen]
	}
	if frameLen == 0 {
		return dst
	}
	idx := 0
	for i := range frameLen {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(samples[idx])
			idx++
		}
		dst[i] = sum / float64(channels)
	}
	return dst
}

// BlackmanWindow returns the classic Blackman window (alpha 0.16) for the requested size.
func BlackmanWindow(n int) []float64 {
	if n <= 0 {
		return nil
	}
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	window := make([]float64, n)
	for i := range n {
		x := float64(i) / float64(n)
		window[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return window
}

// ApplyWindowInPlace multiplies samples by a window function in-place.
func ApplyWindowInPlace(samples []float64, window []float64) {
	switch {
	case len(samples) == 0:
		return
	case len(samples) != len(window):
		panic("dsp: window length mismatch")
	}
	for i := range samples {
		samples[i] *= window[i]
	}
}

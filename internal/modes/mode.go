package modes

import (
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
)

// Name identifies a visual mode.
type Name string

const (
	Spikes      Name = "spikes"
	MeshNet     Name = "meshnet"
	InkFluid    Name = "inkfluid"
	RippleWater Name = "ripplewater"
)

var ErrUnknownMode = eris.New("unknown visual mode")

// Names lists every mode in selector order.
func Names() []Name {
	return []Name{Spikes, MeshNet, InkFluid, RippleWater}
}

// Quality is the geometry detail tier.
type Quality int

const (
	QualityLow Quality = iota
	QualityBalanced
	QualityHigh
	QualityUltra
)

// Valid reports whether q is one of the defined tiers.
func (q Quality) Valid() bool {
	return q >= QualityLow && q <= QualityUltra
}

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityBalanced:
		return "balanced"
	case QualityHigh:
		return "high"
	case QualityUltra:
		return "ultra"
	default:
		return "unknown"
	}
}

// Features is the smoothed audio state of a mode instance.
type Features struct {
	Bass   float64
	Treble float64
}

// Mode is one procedural visual. An instance owns exactly one mesh and is built for a
// single quality tier; changing tier means building a new instance.
type Mode interface {
	Name() Name
	Quality() Quality
	Mesh() *scene.Mesh
	Features() Features
	// Update advances the animation by one frame. frame may be nil when no audio source
	// is connected; palettes with fewer than three colours keep the previous gradient.
	Update(frame dsp.Frame, pal palette.Palette, reactivity float64)
	// Dispose releases the mesh. Calls after the first are no-ops.
	Dispose()
}

// Constructor builds a mode at the given tier.
type Constructor func(Quality) Mode

var registry = map[Name]Constructor{
	Spikes:      func(q Quality) Mode { return NewSpikes(q) },
	MeshNet:     func(q Quality) Mode { return NewMeshNet(q) },
	InkFluid:    func(q Quality) Mode { return NewInkFluid(q) },
	RippleWater: func(q Quality) Mode { return NewRippleWater(q) },
}

// Lookup returns the constructor registered for name.
func Lookup(name Name) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownMode, "mode %q", name)
	}
	return ctor, nil
}

// detailFor picks the entry for q from a four-tier table, clamping out of range tiers.
func detailFor(table [4]int, q Quality) int {
	switch {
	case q < QualityLow:
		q = QualityLow
	case q > QualityUltra:
		q = QualityUltra
	}
	return table[q]
}

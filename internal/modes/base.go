package modes

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
)

// tuning is the per-variant constant set consumed by the shared update steps.
type tuning struct {
	timeStep       float64
	boostStep      float64
	boostThreshold float64
	bassWeight     float64
	trebleWeight   float64
	decay          float64
	spin           scene.Euler
}

// base carries the update logic every variant shares: time accumulation, weighted and
// smoothed bass/treble, palette binding and the idle spin.
type base struct {
	name    Name
	quality Quality
	tuning  tuning
	mesh    *scene.Mesh

	bass   *dsp.Smoother
	treble *dsp.Smoother

	disposed bool
}

func newBase(name Name, quality Quality, t tuning, mesh *scene.Mesh) base {
	return base{
		name:    name,
		quality: quality,
		tuning:  t,
		mesh:    mesh,
		bass:    dsp.NewSmoother(t.decay),
		treble:  dsp.NewSmoother(t.decay),
	}
}

func (b *base) Name() Name        { return b.name }
func (b *base) Quality() Quality  { return b.quality }
func (b *base) Mesh() *scene.Mesh { return b.mesh }

func (b *base) Features() Features {
	return Features{Bass: b.bass.Value(), Treble: b.treble.Value()}
}

func (b *base) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.mesh.Dispose()
}

func (b *base) uniforms() *scene.Uniforms {
	return &b.mesh.Material.Uniforms
}

// advance runs the time, audio and palette steps. It reports false once the mode has
// been disposed, in which case nothing was touched.
func (b *base) advance(frame dsp.Frame, pal palette.Palette, reactivity float64) bool {
	if b.disposed {
		return false
	}
	u := b.uniforms()

	step := b.tuning.timeStep
	if b.tuning.boostStep != 0 && u.Bass > b.tuning.boostThreshold {
		step += b.tuning.boostStep
	}
	u.Time += step

	if frame != nil {
		rawBass := frame.Level(dsp.BassBin) * reactivity * b.tuning.bassWeight
		rawTreble := frame.Level(dsp.TrebleBin) * reactivity * b.tuning.trebleWeight
		u.Bass = b.bass.Step(rawBass)
		u.Treble = b.treble.Step(rawTreble)
	}

	if len(pal) >= 3 {
		u.Color1 = pal[0].Colorful()
		u.Color2 = pal[1].Colorful()
		u.Color3 = pal[2].Colorful()
	}
	return true
}

func (b *base) rotate() {
	r := &b.mesh.Rotation
	r.X += b.tuning.spin.X
	r.Y += b.tuning.spin.Y
	r.Z += b.tuning.spin.Z
}

// gradient maps m in [0,1] onto the three bound colours: the lower half blends
// colour 1 towards 2, the upper half colour 2 towards 3.
func gradient(u *scene.Uniforms, m float64) colorful.Color {
	if m > 0.5 {
		return u.Color2.BlendRgb(u.Color3, (m-0.5)*2)
	}
	return u.Color1.BlendRgb(u.Color2, m)
}

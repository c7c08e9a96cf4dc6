package modes

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

var rippleWaterSegments = [4]int{8, 16, 32, 64}

var rippleWaterTuning = tuning{
	timeStep:     0.01,
	bassWeight:   0.8,
	trebleWeight: 1.0,
	decay:        0.1,
	spin:         scene.Euler{Z: 0.0005},
}

// RippleWaterMode is a water surface with two droplet sources: the left one pulses with
// bass, the right one with treble. Their rings interfere in the middle.
type RippleWaterMode struct {
	base
}

// NewRippleWater builds the water plane at the given tier.
func NewRippleWater(q Quality) *RippleWaterMode {
	material := scene.NewMaterial(rippleWaterProgram{})
	material.DepthTest = false

	seg := detailFor(rippleWaterSegments, q)
	mesh := scene.NewMesh(scene.NewPlane(200, 200, seg, seg), material)
	return &RippleWaterMode{base: newBase(RippleWater, q, rippleWaterTuning, mesh)}
}

func (m *RippleWaterMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	if !m.advance(frame, pal, reactivity) {
		return
	}
	m.rotate()
}

var (
	bassSource   = scene.Vec2{X: 0.35, Y: 0.5}
	trebleSource = scene.Vec2{X: 0.65, Y: 0.5}
)

type rippleWaterProgram struct{}

func ring(uv, src scene.Vec2, freq, speed, t, amp float64) float64 {
	d := math.Hypot(uv.X-src.X, uv.Y-src.Y)
	return amp * math.Sin(d*freq-t*speed) * math.Exp(-d*3)
}

// height is the summed wave height at uv, roughly in [-2, 2].
func (rippleWaterProgram) height(uv scene.Vec2, u *scene.Uniforms) float64 {
	h := ring(uv, bassSource, 40, 4, u.Time, 0.2+u.Bass)
	h += ring(uv, trebleSource, 70, 6, u.Time, 0.2+u.Treble)
	return h
}

func (p rippleWaterProgram) Vertex(in scene.VertexIn, u *scene.Uniforms) scene.VertexOut {
	h := p.height(in.UV, u)
	return scene.VertexOut{
		Position: in.Position.Add(in.Normal.Scale(h * 2)),
		Varying:  h,
	}
}

func (p rippleWaterProgram) Fragment(in scene.FragmentIn, u *scene.Uniforms) (colorful.Color, float64) {
	return gradient(u, utils.Smoothstep(-1, 1, p.height(in.UV, u))), 1
}

package modes

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

var inkFluidSegments = [4]int{8, 16, 32, 64}

var inkFluidTuning = tuning{
	timeStep:       0.005,
	boostStep:      0.01,
	boostThreshold: 0.1,
	bassWeight:     0.8,
	trebleWeight:   0.8,
	decay:          0.1,
	spin:           scene.Euler{Z: 0.0005},
}

// InkFluidMode is a full-screen plane shaded with domain-warped noise, like ink
// swirling in water. Bass speeds up the flow and strengthens the warp.
type InkFluidMode struct {
	base
}

// NewInkFluid builds the ink plane at the given tier.
func NewInkFluid(q Quality) *InkFluidMode {
	material := scene.NewMaterial(inkFluidProgram{})
	material.DepthTest = false

	seg := detailFor(inkFluidSegments, q)
	mesh := scene.NewMesh(scene.NewPlane(100, 100, seg, seg), material)
	return &InkFluidMode{base: newBase(InkFluid, q, inkFluidTuning, mesh)}
}

func (m *InkFluidMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	if !m.advance(frame, pal, reactivity) {
		return
	}
	m.rotate()
}

type inkFluidProgram struct{}

func (inkFluidProgram) Vertex(in scene.VertexIn, _ *scene.Uniforms) scene.VertexOut {
	return scene.VertexOut{Position: in.Position}
}

// density returns the warped field value at uv in [0, 1].
func (inkFluidProgram) density(uv scene.Vec2, u *scene.Uniforms) float64 {
	octaves := 2
	if u.Treble > 0.05 {
		octaves = 5
	}
	warp := 1 + u.Bass*4
	t := u.Time

	x, y := uv.X*3, uv.Y*3
	qx := fbm(x, y, t*0.5, octaves)
	qy := fbm(x+5.2, y+1.3, t*0.5, octaves)
	rx := fbm(x+warp*qx+1.7, y+warp*qy+9.2, t*0.7, octaves)
	ry := fbm(x+warp*qx+8.3, y+warp*qy+2.8, t*0.7, octaves)
	f := fbm(x+warp*rx, y+warp*ry, t, octaves)
	return utils.Clamp(f*0.5+0.5, 0.0, 1.0)
}

func (p inkFluidProgram) Fragment(in scene.FragmentIn, u *scene.Uniforms) (colorful.Color, float64) {
	return gradient(u, utils.Smoothstep(0.2, 0.8, p.density(in.UV, u))), 1
}

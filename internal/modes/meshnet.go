package modes

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

const meshNetRadius = 15

// Low suits integrated graphics; Ultra is deliberately heavy.
var meshNetDetail = [4]int{2, 6, 8, 14}

var meshNetTuning = tuning{
	timeStep:     0.01,
	bassWeight:   0.5,
	trebleWeight: 0.5,
	decay:        0.15,
	spin:         scene.Euler{Y: 0.001, Z: 0.001},
}

// MeshNetMode is a dense wireframe sphere displaced along its normals by layered noise.
type MeshNetMode struct {
	base
}

// NewMeshNet builds the wireframe sphere at the given tier.
func NewMeshNet(q Quality) *MeshNetMode {
	material := scene.NewMaterial(meshNetProgram{})
	material.Wireframe = true
	material.Blending = scene.AdditiveBlending
	material.DepthTest = false

	mesh := scene.NewMesh(scene.NewIcosahedron(meshNetRadius, detailFor(meshNetDetail, q)), material)
	return &MeshNetMode{base: newBase(MeshNet, q, meshNetTuning, mesh)}
}

func (m *MeshNetMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	if !m.advance(frame, pal, reactivity) {
		return
	}
	m.rotate()
}

type meshNetProgram struct{}

// displacement is the distance a rest position moves along its normal.
func (meshNetProgram) displacement(p scene.Vec3, u *scene.Uniforms) float64 {
	t := u.Time
	noise := simplex3(p.X*0.1+t*0.2, p.Y*0.1+t*0.2, p.Z*0.1+t*0.2)
	// detail octaves only pay off once there is treble to show them
	if u.Treble > 0.05 {
		noise += simplex3(p.X*0.4+t*0.5, p.Y*0.4+t*0.5, p.Z*0.4+t*0.5) * 0.2
		noise += simplex3(p.X*0.8+t*0.8, p.Y*0.8+t*0.8, p.Z*0.8+t*0.8) * 0.1
	}
	return u.Bass*5 + noise*u.Treble*8
}

func (p meshNetProgram) Vertex(in scene.VertexIn, u *scene.Uniforms) scene.VertexOut {
	d := p.displacement(in.Position, u)
	return scene.VertexOut{
		Position: in.Position.Add(in.Normal.Scale(d)),
		Varying:  d,
	}
}

func (meshNetProgram) Fragment(in scene.FragmentIn, u *scene.Uniforms) (colorful.Color, float64) {
	m := utils.Smoothstep(-5, 15, in.Varying)
	return gradient(u, m), 0.3 + m*0.7
}

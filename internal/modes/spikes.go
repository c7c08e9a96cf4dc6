package modes

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/chroma-pulse/internal/dsp"
	"github.com/cybre/chroma-pulse/internal/palette"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

const spikesRadius = 10

var spikesDetail = [4]int{1, 2, 4, 5}

var spikesTuning = tuning{
	timeStep:     0.01,
	bassWeight:   1.0,
	trebleWeight: 1.0,
	decay:        0.2,
	spin:         scene.Euler{X: 0.002, Y: 0.002},
}

// SpikesMode is the kinetic sphere. Unlike the other modes it displaces every vertex on
// the CPU each frame, so its cost grows linearly with the vertex count.
type SpikesMode struct {
	base
	now func() time.Time
}

// NewSpikes builds the kinetic sphere at the given tier.
func NewSpikes(q Quality) *SpikesMode {
	material := scene.NewMaterial(spikesProgram{radius: spikesRadius})
	material.Wireframe = true

	mesh := scene.NewMesh(scene.NewIcosahedron(spikesRadius, detailFor(spikesDetail, q)), material)
	return &SpikesMode{
		base: newBase(Spikes, q, spikesTuning, mesh),
		now:  time.Now,
	}
}

func (m *SpikesMode) Update(frame dsp.Frame, pal palette.Palette, reactivity float64) {
	if !m.advance(frame, pal, reactivity) {
		return
	}

	bass := m.uniforms().Bass
	m.mesh.Scale = 1 + bass*255/512

	ms := float64(m.now().UnixNano()) / float64(time.Millisecond)
	g := m.mesh.Geometry
	for i, rest := range g.Rest {
		noise := math.Sin(rest.X*0.5+ms*0.001) * math.Cos(rest.Y*0.5+ms*0.002)
		spike := bass * 5 * noise
		g.Positions[i] = rest.Add(rest.Normalize().Scale(spike))
	}

	m.rotate()
}

type spikesProgram struct {
	radius float64
}

func (p spikesProgram) Vertex(in scene.VertexIn, _ *scene.Uniforms) scene.VertexOut {
	return scene.VertexOut{Position: in.Position, Varying: in.Position.Len() - p.radius}
}

func (spikesProgram) Fragment(in scene.FragmentIn, u *scene.Uniforms) (colorful.Color, float64) {
	return gradient(u, utils.Smoothstep(-5, 5, in.Varying)), 0.8
}

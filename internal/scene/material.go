package scene

import "github.com/lucasb-eyer/go-colorful"

// Blending selects how fragments combine with what is already on the surface.
type Blending int

const (
	NormalBlending Blending = iota
	AdditiveBlending
)

// Default gradient colours, cyan → magenta → yellow, used until a palette is bound.
var (
	DefaultColor1 = colorful.Color{R: 0, G: 1, B: 1}
	DefaultColor2 = colorful.Color{R: 1, G: 0, B: 1}
	DefaultColor3 = colorful.Color{R: 1, G: 1, B: 0}
)

// Uniforms are the per-frame shader parameters written by a visual mode.
type Uniforms struct {
	Time   float64
	Bass   float64
	Treble float64
	Color1 colorful.Color
	Color2 colorful.Color
	Color3 colorful.Color
}

// NewUniforms returns uniforms at rest with the default gradient.
func NewUniforms() Uniforms {
	return Uniforms{Color1: DefaultColor1, Color2: DefaultColor2, Color3: DefaultColor3}
}

// VertexIn is what the vertex stage sees for one vertex.
type VertexIn struct {
	Position Vec3
	Normal   Vec3
	UV       Vec2
}

// VertexOut is the vertex stage result. Varying is interpolated across the triangle and
// handed to the fragment stage.
type VertexOut struct {
	Position Vec3
	Varying  float64
}

// FragmentIn is the interpolated input of the fragment stage.
type FragmentIn struct {
	UV      Vec2
	Varying float64
}

// Program is the pair of shading stages a surface runs for a material.
type Program interface {
	Vertex(in VertexIn, u *Uniforms) VertexOut
	Fragment(in FragmentIn, u *Uniforms) (colorful.Color, float64)
}

// Material binds a Program to its uniforms and raster state.
type Material struct {
	Program   Program
	Uniforms  Uniforms
	Wireframe bool
	Blending  Blending
	DepthTest bool

	disposed bool
}

// NewMaterial returns a depth-tested, normally blended material.
func NewMaterial(program Program) *Material {
	return &Material{
		Program:   program,
		Uniforms:  NewUniforms(),
		DepthTest: true,
	}
}

// Dispose releases the program. Later calls are no-ops.
func (m *Material) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.Program = nil
}

// Disposed reports whether Dispose was called.
func (m *Material) Disposed() bool {
	return m.disposed
}

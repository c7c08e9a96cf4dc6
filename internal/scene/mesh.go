package scene

// Mesh pairs one geometry with one material plus a model transform.
type Mesh struct {
	Geometry *Geometry
	Material *Material
	Rotation Euler
	Scale    float64
}

// NewMesh returns a mesh with unit scale and no rotation.
func NewMesh(geometry *Geometry, material *Material) *Mesh {
	return &Mesh{Geometry: geometry, Material: material, Scale: 1}
}

// Transform maps a model-space point to world space.
func (m *Mesh) Transform(p Vec3) Vec3 {
	return m.Rotation.Rotate(p.Scale(m.Scale))
}

// Dispose releases both the geometry and the material.
func (m *Mesh) Dispose() {
	if m.Geometry != nil {
		m.Geometry.Dispose()
	}
	if m.Material != nil {
		m.Material.Dispose()
	}
}

// Disposed reports whether every owned resource has been released.
func (m *Mesh) Disposed() bool {
	return (m.Geometry == nil || m.Geometry.Disposed()) &&
		(m.Material == nil || m.Material.Disposed())
}

package scene

import "math"

// PerspectiveCamera looks down -Z from Position towards the origin.
type PerspectiveCamera struct {
	FOV      float64 // vertical field of view in degrees
	Aspect   float64
	Near     float64
	Far      float64
	Position Vec3
}

// NewPerspectiveCamera returns the default rig: 75° vertical FOV, 40 units from the origin.
func NewPerspectiveCamera(aspect float64) *PerspectiveCamera {
	if aspect <= 0 {
		aspect = 1
	}
	return &PerspectiveCamera{
		FOV:      75,
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
		Position: Vec3{Z: 40},
	}
}

// Project maps a world-space point to normalized device coordinates in [-1, 1] and its
// distance along the view axis. ok is false when the point is outside the depth range.
func (c *PerspectiveCamera) Project(p Vec3) (x, y, depth float64, ok bool) {
	v := p.Sub(c.Position)
	depth = -v.Z
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	x = f / c.Aspect * v.X / depth
	y = f * v.Y / depth
	return x, y, depth, true
}

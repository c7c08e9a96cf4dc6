package scene

import "math"

// Vec2 is a 2D texture coordinate.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D point or direction.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector in v's direction, or the zero vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Lerp interpolates from v to o.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{
		v.X + (o.X-v.X)*t,
		v.Y + (o.Y-v.Y)*t,
		v.Z + (o.Z-v.Z)*t,
	}
}

// Euler holds per-axis rotation angles in radians, applied in XYZ order.
type Euler struct {
	X, Y, Z float64
}

// Rotate applies e to v. The combined matrix is Rx·Ry·Rz, so the Z rotation is applied
// first.
func (e Euler) Rotate(v Vec3) Vec3 {
	if e.Z != 0 {
		s, c := math.Sincos(e.Z)
		v = Vec3{v.X*c - v.Y*s, v.X*s + v.Y*c, v.Z}
	}
	if e.Y != 0 {
		s, c := math.Sincos(e.Y)
		v = Vec3{v.X*c + v.Z*s, v.Y, -v.X*s + v.Z*c}
	}
	if e.X != 0 {
		s, c := math.Sincos(e.X)
		v = Vec3{v.X, v.Y*c - v.Z*s, v.Y*s + v.Z*c}
	}
	return v
}

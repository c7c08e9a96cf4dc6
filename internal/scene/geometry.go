package scene

import "math"

// Geometry is a non-indexed triangle list: every three consecutive vertices form one
// triangle. Rest keeps the construction-time positions so CPU-animated meshes can be
// rebuilt from them each frame.
type Geometry struct {
	Positions []Vec3
	Rest      []Vec3
	Normals   []Vec3
	UVs       []Vec2

	disposed bool
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Positions) / 3
}

// Dispose releases the vertex buffers. Later calls are no-ops.
func (g *Geometry) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	g.Positions = nil
	g.Rest = nil
	g.Normals = nil
	g.UVs = nil
}

// Disposed reports whether Dispose was called.
func (g *Geometry) Disposed() bool {
	return g.disposed
}

func (g *Geometry) finish() *Geometry {
	g.Rest = make([]Vec3, len(g.Positions))
	copy(g.Rest, g.Positions)
	return g
}

var icosahedronVertices = func() []Vec3 {
	t := (1 + math.Sqrt(5)) / 2
	return []Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
}()

var icosahedronFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// NewIcosahedron builds a sphere approximation by splitting each of the 20 faces into
// (detail+1)² triangles and projecting every vertex onto the sphere of the given radius.
func NewIcosahedron(radius float64, detail int) *Geometry {
	detail = max(detail, 0)
	cols := detail + 1
	tris := 20 * cols * cols

	g := &Geometry{
		Positions: make([]Vec3, 0, tris*3),
		Normals:   make([]Vec3, 0, tris*3),
		UVs:       make([]Vec2, 0, tris*3),
	}

	emit := func(vs ...Vec3) {
		for _, v := range vs {
			n := v.Normalize()
			g.Positions = append(g.Positions, n.Scale(radius))
			g.Normals = append(g.Normals, n)
			g.UVs = append(g.UVs, sphericalUV(n))
		}
	}

	for _, face := range icosahedronFaces {
		a := icosahedronVertices[face[0]]
		b := icosahedronVertices[face[1]]
		c := icosahedronVertices[face[2]]

		grid := make([][]Vec3, cols+1)
		for i := 0; i <= cols; i++ {
			t := float64(i) / float64(cols)
			aj := a.Lerp(c, t)
			bj := b.Lerp(c, t)
			rows := cols - i
			grid[i] = make([]Vec3, rows+1)
			for j := 0; j <= rows; j++ {
				if rows == 0 {
					grid[i][j] = aj
					continue
				}
				grid[i][j] = aj.Lerp(bj, float64(j)/float64(rows))
			}
		}

		for i := 0; i < cols; i++ {
			for j := 0; j < 2*(cols-i)-1; j++ {
				k := j / 2
				if j%2 == 0 {
					emit(grid[i][k+1], grid[i+1][k], grid[i][k])
				} else {
					emit(grid[i][k+1], grid[i+1][k+1], grid[i+1][k])
				}
			}
		}
	}

	return g.finish()
}

func sphericalUV(n Vec3) Vec2 {
	return Vec2{
		X: math.Atan2(n.Z, n.X)/(2*math.Pi) + 0.5,
		Y: math.Asin(max(-1, min(1, n.Y)))/math.Pi + 0.5,
	}
}

// NewPlane builds a width×height plane in the XY plane, centred on the origin and facing
// +Z, split into segX×segY quads.
func NewPlane(width, height float64, segX, segY int) *Geometry {
	segX = max(segX, 1)
	segY = max(segY, 1)
	tris := segX * segY * 2

	g := &Geometry{
		Positions: make([]Vec3, 0, tris*3),
		Normals:   make([]Vec3, 0, tris*3),
		UVs:       make([]Vec2, 0, tris*3),
	}

	point := func(ix, iy int) (Vec3, Vec2) {
		u := float64(ix) / float64(segX)
		v := float64(iy) / float64(segY)
		return Vec3{X: u*width - width/2, Y: height/2 - v*height}, Vec2{X: u, Y: 1 - v}
	}
	emit := func(corners ...[2]int) {
		for _, c := range corners {
			p, uv := point(c[0], c[1])
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, Vec3{Z: 1})
			g.UVs = append(g.UVs, uv)
		}
	}

	for iy := 0; iy < segY; iy++ {
		for ix := 0; ix < segX; ix++ {
			a := [2]int{ix, iy}
			b := [2]int{ix, iy + 1}
			c := [2]int{ix + 1, iy + 1}
			d := [2]int{ix + 1, iy}
			emit(a, b, d)
			emit(b, c, d)
		}
	}

	return g.finish()
}

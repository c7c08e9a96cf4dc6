package render

import (
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/cybre/chroma-pulse/internal/orchestrator"
	"github.com/cybre/chroma-pulse/internal/scene"
	"github.com/cybre/chroma-pulse/internal/utils"
)

// CellAspect is the width of a terminal cell relative to its height.
const CellAspect = 0.5

// wireWidth is how close to a triangle edge, in cells, a wireframe fragment must be.
const wireWidth = 0.6

var ErrDisposedMesh = eris.New("attached mesh was disposed")

// Surface rasterises attached meshes into a character canvas. It is not safe for
// concurrent use; the render loop owns it.
type Surface struct {
	camera  *scene.PerspectiveCamera
	meshes  []*scene.Mesh
	present func(*Canvas)

	width    int
	height   int
	color    []colorful.Color
	coverage []float64
	depth    []float64
}

var _ orchestrator.Surface = (*Surface)(nil)

// NewSurface returns a surface of width×height cells. present, if set, receives every
// finished canvas.
func NewSurface(width, height int, present func(*Canvas)) *Surface {
	s := &Surface{
		camera:  scene.NewPerspectiveCamera(1),
		present: present,
	}
	s.Resize(width, height)
	return s
}

// Attach adds mesh to the scene. Attaching the same mesh twice is a no-op.
func (s *Surface) Attach(mesh *scene.Mesh) {
	if mesh == nil || slices.Contains(s.meshes, mesh) {
		return
	}
	s.meshes = append(s.meshes, mesh)
}

// Detach removes mesh from the scene.
func (s *Surface) Detach(mesh *scene.Mesh) {
	s.meshes = slices.DeleteFunc(s.meshes, func(m *scene.Mesh) bool { return m == mesh })
}

// Meshes returns the number of attached meshes.
func (s *Surface) Meshes() int {
	return len(s.meshes)
}

// Resize reallocates the buffers and updates the camera aspect.
func (s *Surface) Resize(width, height int) {
	width = max(width, 1)
	height = max(height, 1)
	s.width, s.height = width, height
	s.color = make([]colorful.Color, width*height)
	s.coverage = make([]float64, width*height)
	s.depth = make([]float64, width*height)
	s.camera.Aspect = float64(width) * CellAspect / float64(height)
}

// Size returns the canvas dimensions in cells.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// Draw renders one frame and hands it to the presenter.
func (s *Surface) Draw() error {
	canvas, err := s.Render()
	if err != nil {
		return err
	}
	if s.present != nil {
		s.present(canvas)
	}
	return nil
}

// Render rasterises the attached meshes into a new canvas.
func (s *Surface) Render() (*Canvas, error) {
	for i := range s.color {
		s.color[i] = Background
		s.coverage[i] = 0
		s.depth[i] = math.Inf(1)
	}

	for _, mesh := range s.meshes {
		if mesh.Disposed() || mesh.Material.Program == nil {
			return nil, ErrDisposedMesh
		}
		s.drawMesh(mesh)
	}

	canvas := &Canvas{Width: s.width, Height: s.height, Cells: make([]Cell, len(s.color))}
	for i, c := range s.color {
		canvas.Cells[i] = Cell{Color: c.Clamped(), Glyph: glyphFor(s.coverage[i])}
	}
	return canvas, nil
}

type projected struct {
	x, y, depth float64
	varying     float64
	uv          scene.Vec2
}

func (s *Surface) drawMesh(mesh *scene.Mesh) {
	g := mesh.Geometry
	mat := mesh.Material
	u := &mat.Uniforms

	var tri [3]projected
	for base := 0; base+2 < len(g.Positions); base += 3 {
		visible := true
		for k := range 3 {
			i := base + k
			out := mat.Program.Vertex(scene.VertexIn{
				Position: g.Positions[i],
				Normal:   g.Normals[i],
				UV:       g.UVs[i],
			}, u)
			x, y, depth, ok := s.camera.Project(mesh.Transform(out.Position))
			if !ok {
				visible = false
				break
			}
			tri[k] = projected{
				x:       (x + 1) / 2 * float64(s.width),
				y:       (1 - y) / 2 * float64(s.height),
				depth:   depth,
				varying: out.Varying,
				uv:      g.UVs[i],
			}
		}
		if visible {
			s.rasterize(tri, mat)
		}
	}
}

func edge(a, b projected, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (s *Surface) rasterize(tri [3]projected, mat *scene.Material) {
	a, b, c := tri[0], tri[1], tri[2]
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}

	minX := max(int(math.Floor(min(a.x, b.x, c.x))), 0)
	maxX := min(int(math.Ceil(max(a.x, b.x, c.x))), s.width-1)
	minY := max(int(math.Floor(min(a.y, b.y, c.y))), 0)
	maxY := min(int(math.Ceil(max(a.y, b.y, c.y))), s.height-1)
	if minX > maxX || minY > maxY {
		return
	}

	// edge lengths opposite each vertex, for wireframe distance tests
	lenA := math.Hypot(c.x-b.x, c.y-b.y)
	lenB := math.Hypot(a.x-c.x, a.y-c.y)
	lenC := math.Hypot(b.x-a.x, b.y-a.y)

	u := &mat.Uniforms
	for py := minY; py <= maxY; py++ {
		cy := float64(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float64(px) + 0.5
			w0 := edge(b, c, cx, cy) / area
			w1 := edge(c, a, cx, cy) / area
			w2 := edge(a, b, cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			if mat.Wireframe {
				twice := math.Abs(area)
				d := math.Min(w0*twice/lenA, math.Min(w1*twice/lenB, w2*twice/lenC))
				if d > wireWidth {
					continue
				}
			}

			idx := py*s.width + px
			z := w0*a.depth + w1*b.depth + w2*c.depth
			if mat.DepthTest {
				if z >= s.depth[idx] {
					continue
				}
				s.depth[idx] = z
			}

			col, alpha := mat.Program.Fragment(scene.FragmentIn{
				UV: scene.Vec2{
					X: w0*a.uv.X + w1*b.uv.X + w2*c.uv.X,
					Y: w0*a.uv.Y + w1*b.uv.Y + w2*c.uv.Y,
				},
				Varying: w0*a.varying + w1*b.varying + w2*c.varying,
			}, u)
			s.blend(idx, col, utils.Clamp(alpha, 0.0, 1.0), mat.Blending)
		}
	}
}

func (s *Surface) blend(idx int, col colorful.Color, alpha float64, mode scene.Blending) {
	dst := s.color[idx]
	switch mode {
	case scene.AdditiveBlending:
		s.color[idx] = colorful.Color{
			R: dst.R + col.R*alpha,
			G: dst.G + col.G*alpha,
			B: dst.B + col.B*alpha,
		}
		s.coverage[idx] = math.Min(1, s.coverage[idx]+alpha)
	default:
		s.color[idx] = dst.BlendRgb(col, alpha)
		s.coverage[idx] = math.Max(s.coverage[idx], alpha)
	}
}

package modes

import (
	"math"
	"math/rand"
)

var grad3 = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// perm is a fixed permutation of 0..255 repeated twice so lookups never wrap.
var perm = func() [512]int {
	var p [512]int
	order := rand.New(rand.NewSource(1337)).Perm(256)
	for i := range p {
		p[i] = order[i&255]
	}
	return p
}()

// simplex3 is 3D simplex noise in roughly [-1, 1]. It is zero on lattice points.
func simplex3(x, y, z float64) float64 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)

	s := (x + y + z) * f3
	i := int(math.Floor(x + s))
	j := int(math.Floor(y + s))
	k := int(math.Floor(z + s))
	t := float64(i+j+k) * g3
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)
	z0 := z - (float64(k) - t)

	var i1, j1, k1, i2, j2, k2 int
	switch {
	case x0 >= y0 && y0 >= z0:
		i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
	case x0 >= y0 && x0 >= z0:
		i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
	case x0 >= y0:
		i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
	case y0 < z0:
		i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
	case x0 < z0:
		i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
	default:
		i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
	}

	x1 := x0 - float64(i1) + g3
	y1 := y0 - float64(j1) + g3
	z1 := z0 - float64(k1) + g3
	x2 := x0 - float64(i2) + 2*g3
	y2 := y0 - float64(j2) + 2*g3
	z2 := z0 - float64(k2) + 2*g3
	x3 := x0 - 1 + 3*g3
	y3 := y0 - 1 + 3*g3
	z3 := z0 - 1 + 3*g3

	ii, jj, kk := i&255, j&255, k&255
	gi0 := perm[ii+perm[jj+perm[kk]]] % 12
	gi1 := perm[ii+i1+perm[jj+j1+perm[kk+k1]]] % 12
	gi2 := perm[ii+i2+perm[jj+j2+perm[kk+k2]]] % 12
	gi3 := perm[ii+1+perm[jj+1+perm[kk+1]]] % 12

	return 32 * (corner(gi0, x0, y0, z0) +
		corner(gi1, x1, y1, z1) +
		corner(gi2, x2, y2, z2) +
		corner(gi3, x3, y3, z3))
}

func corner(gi int, x, y, z float64) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	t *= t
	g := grad3[gi]
	return t * t * (g[0]*x + g[1]*y + g[2]*z)
}

// fbm sums octaves of simplex noise, halving amplitude and doubling frequency each time.
// The result is normalised back into roughly [-1, 1].
func fbm(x, y, z float64, octaves int) float64 {
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for range max(octaves, 1) {
		sum += amp * simplex3(x*freq, y*freq, z*freq)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return sum / norm
}

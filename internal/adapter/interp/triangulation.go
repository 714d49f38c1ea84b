package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/delaunay"
)

// ErrDegenerate is returned when control points admit no triangulation
// (fewer than three points, or all collinear).
var ErrDegenerate = errors.New("degenerate control points")

// barycentricTolerance admits query points lying on a triangle edge despite
// rounding.
const barycentricTolerance = 1e-9

// Triangulation is a planar triangulation of scattered control points.
// Triangles holds vertex indices into X and Y, three per triangle.
type Triangulation struct {
	X         []float64
	Y         []float64
	Triangles []int
}

// Delaunay triangulates the points (x[i], y[i]).
func Delaunay(x, y []float64) (*Triangulation, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("coordinate lengths differ: %d vs %d", len(x), len(y))
	}
	if len(x) < 3 {
		return nil, fmt.Errorf("%d points: %w", len(x), ErrDegenerate)
	}
	pts := make([]delaunay.Point, len(x))
	for i := range x {
		pts[i] = delaunay.Point{X: x[i], Y: y[i]}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrDegenerate)
	}
	if len(tri.Triangles) == 0 {
		return nil, ErrDegenerate
	}
	return &Triangulation{
		X:         append([]float64(nil), x...),
		Y:         append([]float64(nil), y...),
		Triangles: tri.Triangles,
	}, nil
}

// Lattice triangulates a dense rectilinear lattice directly, splitting every
// lattice cell along its lower-left to upper-right diagonal. Points are
// ordered row-major: index i*len(xs)+j is (xs[j], ys[i]). This is a valid
// Delaunay triangulation of a regular lattice and avoids the general
// algorithm on large bathymetry tiles.
func Lattice(xs, ys []float64) (*Triangulation, error) {
	nx, ny := len(xs), len(ys)
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("lattice of %dx%d points: %w", ny, nx, ErrDegenerate)
	}
	t := &Triangulation{
		X:         make([]float64, 0, nx*ny),
		Y:         make([]float64, 0, nx*ny),
		Triangles: make([]int, 0, 6*(nx-1)*(ny-1)),
	}
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			t.X = append(t.X, xs[j])
			t.Y = append(t.Y, ys[i])
		}
	}
	for i := 0; i < ny-1; i++ {
		for j := 0; j < nx-1; j++ {
			a := i*nx + j
			b := a + 1
			c := a + nx
			d := c + 1
			t.Triangles = append(t.Triangles, a, b, d, a, d, c)
		}
	}
	return t, nil
}

// Grid linearly interpolates values (one per triangulation vertex) onto every
// node of the rectilinear query lattice (gx, gy), both ascending. The result
// is row-major over gy then gx. Nodes outside the triangulated hull, or only
// covered by triangles with a missing (NaN) vertex, are NaN.
func (t *Triangulation) Grid(values, gx, gy []float64) ([]float64, error) {
	if len(values) != len(t.X) {
		return nil, fmt.Errorf("got %d values for %d vertices", len(values), len(t.X))
	}
	out := make([]float64, len(gx)*len(gy))
	for k := range out {
		out[k] = math.NaN()
	}

	for n := 0; n+2 < len(t.Triangles); n += 3 {
		a, b, c := t.Triangles[n], t.Triangles[n+1], t.Triangles[n+2]
		va, vb, vc := values[a], values[b], values[c]
		if math.IsNaN(va) || math.IsNaN(vb) || math.IsNaN(vc) {
			continue
		}
		ax, ay := t.X[a], t.Y[a]
		bx, by := t.X[b], t.Y[b]
		cx, cy := t.X[c], t.Y[c]

		det := (by-cy)*(ax-cx) + (cx-bx)*(ay-cy)
		if det == 0 {
			continue
		}

		j0, j1 := span(gx, math.Min(ax, math.Min(bx, cx)), math.Max(ax, math.Max(bx, cx)))
		i0, i1 := span(gy, math.Min(ay, math.Min(by, cy)), math.Max(ay, math.Max(by, cy)))
		for i := i0; i < i1; i++ {
			py := gy[i]
			for j := j0; j < j1; j++ {
				k := i*len(gx) + j
				if !math.IsNaN(out[k]) {
					continue
				}
				px := gx[j]
				l1 := ((by-cy)*(px-cx) + (cx-bx)*(py-cy)) / det
				l2 := ((cy-ay)*(px-cx) + (ax-cx)*(py-cy)) / det
				l3 := 1 - l1 - l2
				if l1 < -barycentricTolerance || l2 < -barycentricTolerance || l3 < -barycentricTolerance {
					continue
				}
				out[k] = l1*va + l2*vb + l3*vc
			}
		}
	}
	return out, nil
}

// span returns the index range [lo, hi) of axis values within [min, max],
// widened by the barycentric tolerance.
func span(axis []float64, min, max float64) (int, int) {
	lo := sort.SearchFloat64s(axis, min-barycentricTolerance)
	hi := sort.SearchFloat64s(axis, max+barycentricTolerance)
	for hi < len(axis) && axis[hi] <= max+barycentricTolerance {
		hi++
	}
	return lo, hi
}

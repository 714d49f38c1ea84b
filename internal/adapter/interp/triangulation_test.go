package interp

import (
	"errors"
	"math"
	"testing"
)

func plane(x, y float64) float64 { return 2*x - 3*y + 1 }

// TestDelaunay_ReproducesPlane tests that linear interpolation is exact for a
// linear function inside the hull and NaN outside it.
func TestDelaunay_ReproducesPlane(t *testing.T) {
	x := []float64{0, 4, 0, 4, 1.5}
	y := []float64{0, 0, 4, 4, 2.5}
	values := make([]float64, len(x))
	for i := range x {
		values[i] = plane(x[i], y[i])
	}

	tri, err := Delaunay(x, y)
	if err != nil {
		t.Fatalf("Delaunay failed: %v", err)
	}

	gx := []float64{0, 1, 2, 3, 4, 5}
	gy := []float64{0, 2, 4}
	out, err := tri.Grid(values, gx, gy)
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}

	for i, py := range gy {
		for j, px := range gx {
			v := out[i*len(gx)+j]
			if px > 4 {
				if !math.IsNaN(v) {
					t.Errorf("(%v, %v) is outside the hull, expected NaN, got %v", px, py, v)
				}
				continue
			}
			if math.Abs(v-plane(px, py)) > 1e-9 {
				t.Errorf("(%v, %v): expected %.6f, got %.6f", px, py, plane(px, py), v)
			}
		}
	}
}

// TestDelaunay_Degenerate tests collinear and too-small inputs.
func TestDelaunay_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"two points", []float64{0, 1}, []float64{0, 1}},
		{"collinear", []float64{0, 1, 2, 3}, []float64{0, 1, 2, 3}},
	}
	for _, tt := range tests {
		if _, err := Delaunay(tt.x, tt.y); !errors.Is(err, ErrDegenerate) {
			t.Errorf("%s: expected ErrDegenerate, got %v", tt.name, err)
		}
	}
}

// TestLattice_MissingVertex tests that triangles touching a NaN vertex are
// skipped while the rest of the lattice interpolates.
func TestLattice_MissingVertex(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 1}
	tri, err := Lattice(xs, ys)
	if err != nil {
		t.Fatalf("Lattice failed: %v", err)
	}
	if len(tri.Triangles) != 4*3 {
		t.Fatalf("Expected 4 triangles, got %d", len(tri.Triangles)/3)
	}

	values := []float64{
		1, 1, math.NaN(),
		1, 1, 1,
	}
	out, err := tri.Grid(values, []float64{0.5, 1.5, 1.9}, []float64{0.5, 0.01})
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}

	if math.Abs(out[0]-1) > 1e-9 {
		t.Errorf("Left cell should interpolate to 1, got %v", out[0])
	}
	// (1.9, 0.01) lies in the lower triangle of the right cell, which uses the
	// missing vertex (2, 0).
	if !math.IsNaN(out[5]) {
		t.Errorf("Expected NaN next to the missing vertex, got %v", out[5])
	}
}

// TestGrid_ValueCountMismatch tests input validation.
func TestGrid_ValueCountMismatch(t *testing.T) {
	tri, err := Lattice([]float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatalf("Lattice failed: %v", err)
	}
	if _, err := tri.Grid([]float64{1, 2}, []float64{0.5}, []float64{0.5}); err == nil {
		t.Error("Expected error for wrong number of values")
	}
}

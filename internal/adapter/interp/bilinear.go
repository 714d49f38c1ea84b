package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoData is returned when a sample point has no valid neighbouring cell.
var ErrNoData = errors.New("no data at location")

// GridCell represents a cell of a regular grid with four corner values. A NaN
// corner has no data.
type GridCell struct {
	// Corner coordinates (forming a rectangle).
	X0, X1 float64 // X boundaries (longitude).
	Y0, Y1 float64 // Y boundaries (latitude).

	// V00 at (X0, Y0), V10 at (X1, Y0), V01 at (X0, Y1), V11 at (X1, Y1).
	V00, V10, V01, V11 float64
}

// BilinearInterpolate performs bilinear interpolation within a grid cell
//
//	f(x,y) ≈ (1-t)(1-u)f(x0,y0) + t(1-u)f(x1,y0) + (1-t)u*f(x0,y1) + tu*f(x1,y1)
//
// with t = (x - x0) / (x1 - x0) and u = (y - y0) / (y1 - y0). Corners without
// data are dropped and the remaining weights renormalised; ErrNoData is
// returned when every corner with non-zero weight is missing.
func BilinearInterpolate(cell GridCell, x, y float64) (float64, error) {
	if cell.X1 <= cell.X0 {
		return 0, fmt.Errorf("invalid grid cell: X1 must be > X0")
	}
	if cell.Y1 <= cell.Y0 {
		return 0, fmt.Errorf("invalid grid cell: Y1 must be > Y0")
	}

	const epsilon = 1e-9
	if x < cell.X0-epsilon || x > cell.X1+epsilon {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid cell [%.6f, %.6f]", x, cell.X0, cell.X1)
	}
	if y < cell.Y0-epsilon || y > cell.Y1+epsilon {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid cell [%.6f, %.6f]", y, cell.Y0, cell.Y1)
	}

	t := math.Max(0, math.Min(1, (x-cell.X0)/(cell.X1-cell.X0)))
	u := math.Max(0, math.Min(1, (y-cell.Y0)/(cell.Y1-cell.Y0)))

	weights := [4]float64{(1 - t) * (1 - u), t * (1 - u), (1 - t) * u, t * u}
	values := [4]float64{cell.V00, cell.V10, cell.V01, cell.V11}

	var sum, wsum float64
	for k, w := range weights {
		if w == 0 || math.IsNaN(values[k]) {
			continue
		}
		sum += w * values[k]
		wsum += w
	}
	if wsum == 0 {
		return 0, ErrNoData
	}
	return sum / wsum, nil
}

// Grid2D is a regular 2-D grid of cell-centre values.
type Grid2D struct {
	X      []float64   // Longitudes, ascending.
	Y      []float64   // Latitudes, ascending.
	Values [][]float64 // Values[i][j] corresponds to (X[j], Y[i]).
	// Margin extends the sampled area by this distance beyond the first and
	// last coordinates; points there take the edge values.
	Margin float64
}

// Validate checks if the grid is valid.
func (g *Grid2D) Validate() error {
	if len(g.X) < 2 {
		return fmt.Errorf("grid must have at least 2 X coordinates")
	}
	if len(g.Y) < 2 {
		return fmt.Errorf("grid must have at least 2 Y coordinates")
	}
	if len(g.Values) != len(g.Y) {
		return fmt.Errorf("number of value rows (%d) must match Y coordinates (%d)", len(g.Values), len(g.Y))
	}
	for i, row := range g.Values {
		if len(row) != len(g.X) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(g.X))
		}
	}
	if !sort.SliceIsSorted(g.X, func(a, b int) bool { return g.X[a] < g.X[b] }) || hasDuplicates(g.X) {
		return fmt.Errorf("X coordinates must be strictly increasing")
	}
	if !sort.SliceIsSorted(g.Y, func(a, b int) bool { return g.Y[a] < g.Y[b] }) || hasDuplicates(g.Y) {
		return fmt.Errorf("Y coordinates must be strictly increasing")
	}
	return nil
}

func hasDuplicates(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return true
		}
	}
	return false
}

// InterpolateAt samples the grid at (x, y).
func (g *Grid2D) InterpolateAt(x, y float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("invalid grid: %w", err)
	}

	x, ok := clampAxis(g.X, x, g.Margin)
	if !ok {
		return 0, fmt.Errorf("x coordinate %.6f is outside grid range [%.6f, %.6f]", x, g.X[0], g.X[len(g.X)-1])
	}
	y, ok = clampAxis(g.Y, y, g.Margin)
	if !ok {
		return 0, fmt.Errorf("y coordinate %.6f is outside grid range [%.6f, %.6f]", y, g.Y[0], g.Y[len(g.Y)-1])
	}

	xIdx := lowerIndex(g.X, x)
	yIdx := lowerIndex(g.Y, y)

	cell := GridCell{
		X0:  g.X[xIdx],
		X1:  g.X[xIdx+1],
		Y0:  g.Y[yIdx],
		Y1:  g.Y[yIdx+1],
		V00: g.Values[yIdx][xIdx],
		V10: g.Values[yIdx][xIdx+1],
		V01: g.Values[yIdx+1][xIdx],
		V11: g.Values[yIdx+1][xIdx+1],
	}
	return BilinearInterpolate(cell, x, y)
}

// clampAxis pulls v onto [axis[0], axis[n-1]] when it lies within margin of
// the range.
func clampAxis(axis []float64, v, margin float64) (float64, bool) {
	lo, hi := axis[0], axis[len(axis)-1]
	if v < lo-margin || v > hi+margin {
		return v, false
	}
	return math.Max(lo, math.Min(hi, v)), true
}

// lowerIndex returns i such that axis[i] <= v <= axis[i+1].
func lowerIndex(axis []float64, v float64) int {
	i := sort.SearchFloat64s(axis, v) - 1
	if i < 0 {
		i = 0
	}
	if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i
}

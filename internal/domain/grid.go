package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// spacingTolerance is the relative tolerance used when checking that grid
// axes are uniformly spaced.
const spacingTolerance = 1e-6

// RegularGrid is a cell-centred longitude/latitude grid with uniform spacing DC
// (degrees). Lon and Lat hold the cell centres in ascending order.
type RegularGrid struct {
	Lon []float64
	Lat []float64
	DC  float64
}

// NewRegularGrid builds a grid from cell-centre axes. The spacing is derived
// from the first two longitudes (rounded to 1e-3 degree) and must hold for
// every step of both axes.
func NewRegularGrid(lon, lat []float64) (RegularGrid, error) {
	if len(lon) < 2 || len(lat) < 2 {
		return RegularGrid{}, fmt.Errorf("grid must have at least 2 cells per axis (got %d lon, %d lat)", len(lon), len(lat))
	}
	dc := math.Round((lon[1]-lon[0])*1000) / 1000
	if dc <= 0 {
		return RegularGrid{}, fmt.Errorf("longitudes must be strictly increasing")
	}
	if err := checkSpacing("longitude", lon, dc); err != nil {
		return RegularGrid{}, err
	}
	if err := checkSpacing("latitude", lat, dc); err != nil {
		return RegularGrid{}, err
	}
	return RegularGrid{
		Lon: append([]float64(nil), lon...),
		Lat: append([]float64(nil), lat...),
		DC:  dc,
	}, nil
}

func checkSpacing(name string, axis []float64, dc float64) error {
	for i := 1; i < len(axis); i++ {
		step := axis[i] - axis[i-1]
		if math.Abs(step-dc) > spacingTolerance*math.Max(1, dc)+1e-9 {
			return fmt.Errorf("%s spacing is not uniform: step %d is %.6f, expected %.6f", name, i, step, dc)
		}
	}
	return nil
}

// GridFromBounds returns the cell-centred grid covering [lonMin, lonMax] x
// [latMin, latMax] with spacing dc. Centres start half a cell inside the lower
// bound and stop before the upper bound minus half a cell.
func GridFromBounds(lonMin, lonMax, latMin, latMax, dc float64) (RegularGrid, error) {
	if dc <= 0 {
		return RegularGrid{}, fmt.Errorf("grid spacing must be positive, got %g", dc)
	}
	lon := centres(lonMin+dc/2, lonMax-dc/2, dc)
	lat := centres(latMin+dc/2, latMax-dc/2, dc)
	return NewRegularGrid(lon, lat)
}

// centres mirrors a half-open arange(start, stop, step).
func centres(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop-start)/step - 1e-9))
	if n <= 0 {
		return nil
	}
	axis := make([]float64, n)
	if n == 1 {
		axis[0] = start
		return axis
	}
	return floats.Span(axis, start, start+float64(n-1)*step)
}

// NLon returns the number of longitude cells.
func (g RegularGrid) NLon() int { return len(g.Lon) }

// NLat returns the number of latitude cells.
func (g RegularGrid) NLat() int { return len(g.Lat) }

// Cells returns the total number of grid cells.
func (g RegularGrid) Cells() int { return len(g.Lon) * len(g.Lat) }

// LonLims returns the first and last longitude centres.
func (g RegularGrid) LonLims() (float64, float64) { return g.Lon[0], g.Lon[len(g.Lon)-1] }

// LatLims returns the first and last latitude centres.
func (g RegularGrid) LatLims() (float64, float64) { return g.Lat[0], g.Lat[len(g.Lat)-1] }

// Covers reports whether (lon, lat) falls in the union of the grid's cell
// boxes, [first centre - dc/2, last centre + dc/2) on both axes.
func (g RegularGrid) Covers(lon, lat float64) bool {
	half := g.DC / 2
	lonMin, lonMax := g.LonLims()
	latMin, latMax := g.LatLims()
	return lon >= lonMin-half && lon < lonMax+half && lat >= latMin-half && lat < latMax+half
}

// InCell reports whether (lon, lat) falls in the half-open box of cell (i, j),
// i being the latitude row and j the longitude column.
func (g RegularGrid) InCell(i, j int, lon, lat float64) bool {
	half := g.DC / 2
	x, y := g.Lon[j], g.Lat[i]
	return lon >= x-half && lon < x+half && lat >= y-half && lat < y+half
}

// Equal reports whether both grids have the same axes.
func (g RegularGrid) Equal(o RegularGrid) bool {
	return g.DC == o.DC && floats.Equal(g.Lon, o.Lon) && floats.Equal(g.Lat, o.Lat)
}

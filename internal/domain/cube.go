package domain

import "math"

// Cube is the [lat, lon, depth bin] working array of a single run. It is
// owned by one run and mutated in place by the gridding stages.
type Cube struct {
	NLat   int
	NLon   int
	NDepth int
	Values []float64
}

// NewCube returns a cube with every entry set to no data.
func NewCube(nLat, nLon, nDepth int) *Cube {
	values := make([]float64, nLat*nLon*nDepth)
	for i := range values {
		values[i] = math.NaN()
	}
	return &Cube{NLat: nLat, NLon: nLon, NDepth: nDepth, Values: values}
}

func (c *Cube) offset(i, j int) int {
	return (i*c.NLon + j) * c.NDepth
}

// Column returns the depth column of cell (i, j), sharing the cube's storage.
func (c *Cube) Column(i, j int) []float64 {
	o := c.offset(i, j)
	return c.Values[o : o+c.NDepth]
}

// At returns entry (i, j, k) and whether it holds data.
func (c *Cube) At(i, j, k int) (float64, bool) {
	v := c.Values[c.offset(i, j)+k]
	return v, !math.IsNaN(v)
}

// Set stores v at (i, j, k).
func (c *Cube) Set(i, j, k int, v float64) {
	c.Values[c.offset(i, j)+k] = v
}

// ClearColumn marks the whole column of cell (i, j) as no data.
func (c *Cube) ClearColumn(i, j int) {
	col := c.Column(i, j)
	for k := range col {
		col[k] = math.NaN()
	}
}

// Layer copies depth bin k into a 2-D field.
func (c *Cube) Layer(k int) Field {
	f := Field{NLat: c.NLat, NLon: c.NLon, Values: make([]float64, c.NLat*c.NLon)}
	for i := 0; i < c.NLat; i++ {
		for j := 0; j < c.NLon; j++ {
			f.Values[i*c.NLon+j] = c.Values[c.offset(i, j)+k]
		}
	}
	return f
}

// SetLayer overwrites depth bin k with the values of f.
func (c *Cube) SetLayer(k int, f Field) {
	for i := 0; i < c.NLat; i++ {
		for j := 0; j < c.NLon; j++ {
			c.Values[c.offset(i, j)+k] = f.Values[i*c.NLon+j]
		}
	}
}

// LayerCount returns the number of cells holding data at depth bin k.
func (c *Cube) LayerCount(k int) int {
	n := 0
	for i := 0; i < c.NLat; i++ {
		for j := 0; j < c.NLon; j++ {
			if !math.IsNaN(c.Values[c.offset(i, j)+k]) {
				n++
			}
		}
	}
	return n
}

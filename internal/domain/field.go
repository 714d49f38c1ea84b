package domain

import (
	"fmt"
	"math"
)

// Field is a 2-D [lat, lon] array of cell values. Cells without data hold NaN
// in storage; callers use At/Valid rather than testing for NaN themselves.
type Field struct {
	NLat   int
	NLon   int
	Values []float64 // Row-major, Values[i*NLon+j] is (Lat[i], Lon[j]).
}

// NewField returns a field with every cell set to no data.
func NewField(nLat, nLon int) Field {
	values := make([]float64, nLat*nLon)
	for i := range values {
		values[i] = math.NaN()
	}
	return Field{NLat: nLat, NLon: nLon, Values: values}
}

// FieldFromRows copies a [lat][lon] slice into a Field.
func FieldFromRows(rows [][]float64) (Field, error) {
	if len(rows) == 0 {
		return Field{}, nil
	}
	nLon := len(rows[0])
	f := Field{NLat: len(rows), NLon: nLon, Values: make([]float64, 0, len(rows)*nLon)}
	for i, row := range rows {
		if len(row) != nLon {
			return Field{}, fmt.Errorf("row %d has %d values, expected %d", i, len(row), nLon)
		}
		f.Values = append(f.Values, row...)
	}
	return f, nil
}

// At returns the value of cell (i, j) and whether it holds data.
func (f Field) At(i, j int) (float64, bool) {
	v := f.Values[i*f.NLon+j]
	return v, !math.IsNaN(v)
}

// Valid reports whether cell (i, j) holds data.
func (f Field) Valid(i, j int) bool {
	return !math.IsNaN(f.Values[i*f.NLon+j])
}

// Set stores v in cell (i, j).
func (f Field) Set(i, j int, v float64) {
	f.Values[i*f.NLon+j] = v
}

// Invalidate marks cell (i, j) as no data.
func (f Field) Invalidate(i, j int) {
	f.Values[i*f.NLon+j] = math.NaN()
}

// Count returns the number of cells holding data.
func (f Field) Count() int {
	n := 0
	for _, v := range f.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of f.
func (f Field) Clone() Field {
	return Field{NLat: f.NLat, NLon: f.NLon, Values: append([]float64(nil), f.Values...)}
}

// Rows returns the field as [lat][lon] slices sharing f's storage.
func (f Field) Rows() [][]float64 {
	rows := make([][]float64, f.NLat)
	for i := range rows {
		rows[i] = f.Values[i*f.NLon : (i+1)*f.NLon]
	}
	return rows
}

// SameShape reports whether f and o have identical dimensions.
func (f Field) SameShape(o Field) bool {
	return f.NLat == o.NLat && f.NLon == o.NLon
}

// Sub returns f - o. A cell holds data only when it does in both operands.
func (f Field) Sub(o Field) (Field, error) {
	if !f.SameShape(o) {
		return Field{}, fmt.Errorf("field shapes differ: [%d, %d] vs [%d, %d]", f.NLat, f.NLon, o.NLat, o.NLon)
	}
	out := NewField(f.NLat, f.NLon)
	for k, a := range f.Values {
		b := o.Values[k]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		out.Values[k] = a - b
	}
	return out, nil
}

// Summary describes the valid cells of a field.
type Summary struct {
	Valid int
	Min   float64
	Max   float64
	Mean  float64
}

// Summarize returns min, max and mean over the valid cells. Min, Max and Mean
// are NaN when no cell holds data.
func (f Field) Summarize() Summary {
	s := Summary{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN()}
	var sum float64
	for _, v := range f.Values {
		if math.IsNaN(v) {
			continue
		}
		if s.Valid == 0 || v < s.Min {
			s.Min = v
		}
		if s.Valid == 0 || v > s.Max {
			s.Max = v
		}
		sum += v
		s.Valid++
	}
	if s.Valid > 0 {
		s.Mean = sum / float64(s.Valid)
	}
	return s
}

// Package bathymetry resamples GEBCO elevation grids onto a regular lon/lat
// grid.
package bathymetry

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/adapter/interp"
	"go.azmp.io/bottom-fields/internal/domain"
)

// Default extents of the global 1-D GEBCO product when the file carries no
// x_range/y_range. These are pixel edges; centres sit half a spacing inside.
var (
	globalLonEdges = [2]float64{-180, 180}
	globalLatEdges = [2]float64{-90, 90}
)

// LocalStore loads bathymetry from local NetCDF files.
type LocalStore struct {
	log logrus.FieldLogger
}

// NewLocalStore creates a bathymetry loader.
func NewLocalStore(log logrus.FieldLogger) *LocalStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LocalStore{log: log}
}

// tile is a cropped, north-up source lattice.
type tile struct {
	lon    []float64
	lat    []float64
	values []float64 // Row-major over lat then lon.
}

// LoadField reads the elevation grid at path and linearly interpolates it onto
// the centres of grid. Cells outside the triangulated source hull have no
// data.
func (s *LocalStore) LoadField(path string, grid domain.RegularGrid) (domain.Field, error) {
	if _, err := os.Stat(path); err != nil {
		return domain.Field{}, fmt.Errorf("failed to open bathymetry %s: %w", path, errors.Join(domain.ErrMissingInput, err))
	}

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	var t *tile
	if _, err := nc.Var("spacing"); err == nil {
		t, err = readGEBCO1D(nc, grid)
		if err != nil {
			return domain.Field{}, fmt.Errorf("failed to read 1-D GEBCO grid: %w", err)
		}
	} else {
		t, err = readGEBCO2D(nc, grid)
		if err != nil {
			return domain.Field{}, fmt.Errorf("failed to read 2-D GEBCO grid: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"stage":  "bathymetry",
		"source": path,
		"nlon":   len(t.lon),
		"nlat":   len(t.lat),
	}).Info("Load and grid bathymetry")

	tri, err := interp.Lattice(t.lon, t.lat)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to triangulate bathymetry: %w", err)
	}
	queryLon := grid.Lon
	if lonAxisRequiresWrap(t.lon) {
		queryLon = make([]float64, len(grid.Lon))
		for j, lon := range grid.Lon {
			queryLon[j] = normalizeLon360(lon)
		}
	}
	values, err := tri.Grid(t.values, queryLon, grid.Lat)
	if err != nil {
		return domain.Field{}, fmt.Errorf("failed to interpolate bathymetry: %w", err)
	}
	return domain.Field{NLat: grid.NLat(), NLon: grid.NLon(), Values: values}, nil
}

// readGEBCO1D reads the flattened global layout: `spacing` (dx, dy), optional
// `x_range`/`y_range` and `z` stored north row first.
func readGEBCO1D(nc netcdf.Dataset, grid domain.RegularGrid) (*tile, error) {
	spacing, err := readVarFloat64s(nc, "spacing")
	if err != nil {
		return nil, err
	}
	if len(spacing) != 2 || spacing[0] <= 0 || spacing[1] <= 0 {
		return nil, fmt.Errorf("invalid spacing %v", spacing)
	}
	xEdges, yEdges := globalLonEdges, globalLatEdges
	if r, err := readVarFloat64s(nc, "x_range"); err == nil && len(r) == 2 {
		xEdges = [2]float64{r[0], r[1]}
	}
	if r, err := readVarFloat64s(nc, "y_range"); err == nil && len(r) == 2 {
		yEdges = [2]float64{r[0], r[1]}
	}

	x0, x1 := xEdges[0]+spacing[0]/2, xEdges[1]-spacing[0]/2
	y0, y1 := yEdges[0]+spacing[1]/2, yEdges[1]-spacing[1]/2
	nx := int(math.Round((x1-x0)/spacing[0])) + 1
	ny := int(math.Round((y1-y0)/spacing[1])) + 1
	lon := linspace(x0, x1, nx)
	lat := linspace(y0, y1, ny)

	lonMin, lonMax := grid.LonLims()
	latMin, latMax := grid.LatLims()
	j0, j1 := cropRange(lon, lonMin, lonMax)
	i0, i1 := cropRange(lat, latMin, latMax)
	if j1-j0 < 2 || i1-i0 < 2 {
		return nil, fmt.Errorf("grid [%.3f, %.3f]x[%.3f, %.3f] is outside the source", lonMin, lonMax, latMin, latMax)
	}

	z, err := nc.Var("z")
	if err != nil {
		return nil, fmt.Errorf("failed to find variable z: %w", err)
	}
	t := &tile{lon: lon[j0:j1], lat: lat[i0:i1], values: make([]float64, 0, (i1-i0)*(j1-j0))}
	for i := i0; i < i1; i++ {
		// Rows are stored north first: flip.
		row := ny - 1 - i
		//nolint:gosec // G115: indices are non-negative.
		vals, err := readValues(z, []uint64{uint64(row*nx + j0)}, []uint64{uint64(j1 - j0)})
		if err != nil {
			return nil, fmt.Errorf("failed to read z row %d: %w", row, err)
		}
		t.values = append(t.values, vals...)
	}
	return t, nil
}

// readGEBCO2D reads the gridded layout with 1-D coordinate variables and a
// 2-D elevation variable in either dimension order.
func readGEBCO2D(nc netcdf.Dataset, grid domain.RegularGrid) (*tile, error) {
	lat, err := firstVar(nc, []string{"lat", "latitude", "y"})
	if err != nil {
		return nil, err
	}
	lon, err := firstVar(nc, []string{"lon", "longitude", "x"})
	if err != nil {
		return nil, err
	}

	dataNames := []string{"elevation", "z", "data"}
	var dataVar netcdf.Var
	found := false
	for _, name := range dataNames {
		if v, err := nc.Var(name); err == nil {
			dataVar = v
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("data variable not found (tried: %v)", dataNames)
	}

	lonMin, lonMax := grid.LonLims()
	if lonAxisRequiresWrap(lon) {
		lonMin, lonMax = normalizeLon360(lonMin), normalizeLon360(lonMax)
	}
	latMin, latMax := grid.LatLims()

	flipLat := len(lat) > 1 && lat[0] > lat[len(lat)-1]
	if flipLat {
		lat = reversed(lat)
	}
	j0, j1 := cropRange(lon, lonMin, lonMax)
	i0, i1 := cropRange(lat, latMin, latMax)
	if j1-j0 < 2 || i1-i0 < 2 {
		return nil, fmt.Errorf("grid [%.3f, %.3f]x[%.3f, %.3f] is outside the source", lonMin, lonMax, latMin, latMax)
	}
	nLat, nLon := i1-i0, j1-j0

	// Source row indices before any flip.
	rowStart := i0
	if flipLat {
		rowStart = len(lat) - i1
	}

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D data, got %dD", len(dims))
	}
	dim0Len, err := dims[0].Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get dim0 length: %w", err)
	}
	dim1Len, err := dims[1].Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get dim1 length: %w", err)
	}

	var values []float64
	switch {
	case dim0Len == uint64(len(lat)) && dim1Len == uint64(len(lon)):
		//nolint:gosec // G115: indices are non-negative.
		values, err = readValues(dataVar, []uint64{uint64(rowStart), uint64(j0)}, []uint64{uint64(nLat), uint64(nLon)})
	case dim0Len == uint64(len(lon)) && dim1Len == uint64(len(lat)):
		var lonLat []float64
		//nolint:gosec // G115: indices are non-negative.
		lonLat, err = readValues(dataVar, []uint64{uint64(j0), uint64(rowStart)}, []uint64{uint64(nLon), uint64(nLat)})
		if err == nil {
			values = transpose(lonLat, nLon, nLat)
		}
	default:
		return nil, fmt.Errorf("dimension mismatch: data is [%d, %d], expected [%d, %d] or [%d, %d]",
			dim0Len, dim1Len, len(lat), len(lon), len(lon), len(lat))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	if flipLat {
		flipRows(values, nLat, nLon)
	}
	return &tile{lon: lon[j0:j1], lat: lat[i0:i1], values: values}, nil
}

func firstVar(nc netcdf.Dataset, names []string) ([]float64, error) {
	for _, name := range names {
		if data, err := readVarFloat64s(nc, name); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

// readVarFloat64s reads a whole 1-D variable.
func readVarFloat64s(nc netcdf.Dataset, name string) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	return readValues(v, []uint64{0}, []uint64{length})
}

// readValues reads a hyperslab of v as float64, applying scale_factor and
// mapping _FillValue to NaN. Supports DOUBLE, FLOAT, INT and SHORT variables.
func readValues(v netcdf.Var, start, count []uint64) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}
	total := 1
	for _, c := range count {
		total *= int(c) //nolint:gosec // G115: slab sizes fit in int.
	}

	data := make([]float64, total)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(data, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, total)
		if err := v.ReadFloat32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, val := range buf {
			data[i] = float64(val)
		}
	case netcdf.SHORT:
		buf := make([]int16, total)
		if err := v.ReadInt16Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, val := range buf {
			data[i] = float64(val)
		}
	case netcdf.INT:
		buf := make([]int32, total)
		if err := v.ReadInt32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, val := range buf {
			data[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	}

	if fill, ok := readScalarAttr(v, "_FillValue"); ok {
		for i, val := range data {
			if val == fill {
				data[i] = math.NaN()
			}
		}
	}
	if scale, ok := readScalarAttr(v, "scale_factor"); ok && scale != 0 {
		for i := range data {
			data[i] *= scale
		}
	}
	return data, nil
}

// readScalarAttr reads a numeric attribute stored as double or int.
func readScalarAttr(v netcdf.Var, name string) (float64, bool) {
	attr := v.Attr(name)
	n, err := attr.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	f := make([]float64, n)
	if err := attr.ReadFloat64s(f); err == nil {
		return f[0], true
	}
	f32 := make([]float32, n)
	if err := attr.ReadFloat32s(f32); err == nil {
		return float64(f32[0]), true
	}
	i32 := make([]int32, n)
	if err := attr.ReadInt32s(i32); err == nil {
		return float64(i32[0]), true
	}
	i16 := make([]int16, n)
	if err := attr.ReadInt16s(i16); err == nil {
		return float64(i16[0]), true
	}
	return 0, false
}

// cropRange returns the index range [lo, hi) of the ascending axis covering
// [min, max] inclusively, widened by one source node on each side so the
// outermost grid centres stay inside the triangulated hull.
func cropRange(axis []float64, min, max float64) (int, int) {
	lo, hi := -1, -1
	for i, v := range axis {
		if v >= min && lo < 0 {
			lo = i
		}
		if v <= max {
			hi = i
		}
	}
	if lo < 0 || hi < 0 || hi < lo {
		return 0, 0
	}
	return clamp(lo-1, 0, len(axis)), clamp(hi+2, 0, len(axis))
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func reversed(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[len(a)-1-i] = v
	}
	return out
}

func flipRows(values []float64, nRows, nCols int) {
	for i := 0; i < nRows/2; i++ {
		a := values[i*nCols : (i+1)*nCols]
		b := values[(nRows-1-i)*nCols : (nRows-i)*nCols]
		for j := range a {
			a[j], b[j] = b[j], a[j]
		}
	}
}

// transpose turns a row-major [rows, cols] slice into [cols, rows].
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return out
}

func lonAxisRequiresWrap(lons []float64) bool {
	if len(lons) == 0 {
		return false
	}
	minVal := lons[0]
	maxVal := lons[len(lons)-1]
	if minVal > maxVal {
		minVal, maxVal = maxVal, minVal
	}
	return minVal >= 0 && maxVal > 180
}

func normalizeLon360(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon
}

// clamp ensures value is within [minVal, maxVal] range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}

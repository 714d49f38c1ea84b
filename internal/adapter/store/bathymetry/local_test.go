package bathymetry

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func elevationPlane(lon, lat float64) float64 { return -100 - 10*lat + lon }

// Helper to create a minimal GEBCO-like NetCDF file with the given elevation data.
func createElevationTestFile(t *testing.T, path string, latVals, lonVals []float64, values [][]float32) {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	latDim, _ := f.AddDim("lat", uint64(len(latVals)))
	lonDim, _ := f.AddDim("lon", uint64(len(lonVals)))
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	velev, _ := f.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteFloat64s(latVals); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteFloat64s(lonVals); err != nil {
		t.Fatalf("write lon: %v", err)
	}
	flat := make([]float32, 0, len(latVals)*len(lonVals))
	for i := range values {
		flat = append(flat, values[i]...)
	}
	if err := velev.WriteFloat32s(flat); err != nil {
		t.Fatalf("write elevation: %v", err)
	}
}

// Helper to create a flattened 1-D GEBCO file. Rows of z are written north first.
func create1DTestFile(t *testing.T, path string, xRange, yRange, spacing []float64, elev func(lon, lat float64) float64) {
	t.Helper()
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	nx := int(math.Round((xRange[1] - xRange[0]) / spacing[0]))
	ny := int(math.Round((yRange[1] - yRange[0]) / spacing[1]))

	sideDim, _ := f.AddDim("side", 2)
	xysize, _ := f.AddDim("xysize", uint64(nx*ny))
	vx, _ := f.AddVar("x_range", netcdf.DOUBLE, []netcdf.Dim{sideDim})
	vy, _ := f.AddVar("y_range", netcdf.DOUBLE, []netcdf.Dim{sideDim})
	vs, _ := f.AddVar("spacing", netcdf.DOUBLE, []netcdf.Dim{sideDim})
	vz, _ := f.AddVar("z", netcdf.FLOAT, []netcdf.Dim{xysize})
	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	_ = vx.WriteFloat64s(xRange)
	_ = vy.WriteFloat64s(yRange)
	_ = vs.WriteFloat64s(spacing)

	z := make([]float32, 0, nx*ny)
	for r := 0; r < ny; r++ {
		lat := yRange[1] - spacing[1]/2 - float64(r)*spacing[1]
		for c := 0; c < nx; c++ {
			lon := xRange[0] + spacing[0]/2 + float64(c)*spacing[0]
			z = append(z, float32(elev(lon, lat)))
		}
	}
	if err := vz.WriteFloat32s(z); err != nil {
		t.Fatalf("write z: %v", err)
	}
}

func testGrid(t *testing.T) domain.RegularGrid {
	t.Helper()
	g, err := domain.NewRegularGrid([]float64{-61, -60, -59}, []float64{41, 42, 43})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return g
}

func checkPlane(t *testing.T, field domain.Field, grid domain.RegularGrid) {
	t.Helper()
	for i, lat := range grid.Lat {
		for j, lon := range grid.Lon {
			v, ok := field.At(i, j)
			if !ok {
				t.Errorf("cell (%d,%d) has no data", i, j)
				continue
			}
			if math.Abs(v-elevationPlane(lon, lat)) > 1e-3 {
				t.Errorf("cell (%d,%d): expected %.3f, got %.3f", i, j, elevationPlane(lon, lat), v)
			}
		}
	}
}

func TestLoadField1DFlipsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gebco_1d.nc")
	create1DTestFile(t, path, []float64{-63, -57}, []float64{39, 45}, []float64{0.5, 0.5}, elevationPlane)

	grid := testGrid(t)
	field, err := NewLocalStore(quietLogger()).LoadField(path, grid)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	checkPlane(t, field, grid)
}

func TestLoadField2D(t *testing.T) {
	latVals := []float64{40, 41.5, 43, 44.5}
	lonVals := []float64{-62, -60.5, -59, -57.5}
	values := make([][]float32, len(latVals))
	for i := range values {
		values[i] = make([]float32, len(lonVals))
		for j := range values[i] {
			values[i][j] = float32(elevationPlane(lonVals[j], latVals[i]))
		}
	}
	path := filepath.Join(t.TempDir(), "gebco_2d.nc")
	createElevationTestFile(t, path, latVals, lonVals, values)

	grid := testGrid(t)
	field, err := NewLocalStore(quietLogger()).LoadField(path, grid)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	checkPlane(t, field, grid)
}

func TestLoadFieldOutsideHull(t *testing.T) {
	// The source only reaches -60 in longitude: the westernmost column of the
	// grid lies outside it.
	latVals := []float64{40, 42, 44}
	lonVals := []float64{-60, -59, -58}
	values := [][]float32{
		{-100, -100, -100},
		{-100, -100, -100},
		{-100, -100, -100},
	}
	path := filepath.Join(t.TempDir(), "gebco_partial.nc")
	createElevationTestFile(t, path, latVals, lonVals, values)

	grid := testGrid(t)
	field, err := NewLocalStore(quietLogger()).LoadField(path, grid)
	if err != nil {
		t.Fatalf("LoadField: %v", err)
	}
	for i := range grid.Lat {
		if field.Valid(i, 0) {
			t.Errorf("cell (%d,0) is outside the source hull and should have no data", i)
		}
		if v, ok := field.At(i, 1); !ok || v != -100 {
			t.Errorf("cell (%d,1): expected -100, got %v", i, v)
		}
	}
}

func TestLoadFieldHandlesWrappedLongitude(t *testing.T) {
	latVals := []float64{40, 42, 44}
	lonVals := []float64{298, 299, 300, 301, 302}
	values := make([][]float32, len(latVals))
	for i := range values {
		values[i] = make([]float32, len(lonVals))
		for j := range values[i] {
			values[i][j] = -200
		}
	}
	path := filepath.Join(t.TempDir(), "gebco_wrap.nc")
	createElevationTestFile(t, path, latVals, lonVals, values)

	grid := testGrid(t)
	field, err := NewLocalStore(quietLogger()).LoadField(path, grid)
	if err != nil {
		t.Fatalf("LoadField wrapped lon: %v", err)
	}
	if field.Count() != grid.Cells() {
		t.Fatalf("expected every cell to have data, got %d of %d", field.Count(), grid.Cells())
	}
}

func TestLoadFieldMissingFile(t *testing.T) {
	_, err := NewLocalStore(quietLogger()).LoadField(filepath.Join(t.TempDir(), "absent.nc"), testGrid(t))
	if !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

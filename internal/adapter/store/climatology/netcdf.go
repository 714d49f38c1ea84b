// Package climatology persists climatology records as NetCDF files.
package climatology

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fhs/go-netcdf/netcdf"

	"go.azmp.io/bottom-fields/internal/domain"
)

// Record variable and attribute names.
const (
	lonRegName  = "lon_reg"
	latRegName  = "lat_reg"
	lonOrigName = "lon_orig"
	latOrigName = "lat_orig"
	bathyName   = "Zitp"
	binsName    = "z"

	attrVariable    = "variable"
	attrSeason      = "season"
	attrFingerprint = "fingerprint"
	attrDZ          = "dz"
)

// NetCDFStore reads and writes climatology records.
type NetCDFStore struct{}

// NewNetCDFStore creates a record store.
func NewNetCDFStore() *NetCDFStore {
	return &NetCDFStore{}
}

// Exists reports whether a file is present at path.
func (s *NetCDFStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes rec to path, replacing any existing file. The record is written
// to a temporary file in the same directory and renamed into place, so a
// failed save never leaves a partial record at path.
func (s *NetCDFStore) Save(path string, rec *domain.ClimatologyRecord) error {
	g := rec.Grid
	if rec.Bottom.NLat != g.NLat() || rec.Bottom.NLon != g.NLon() {
		return fmt.Errorf("bottom field is [%d, %d], grid is [%d, %d]", rec.Bottom.NLat, rec.Bottom.NLon, g.NLat(), g.NLon())
	}
	if rec.Bathymetry.NLat != g.NLat() || rec.Bathymetry.NLon != g.NLon() {
		return fmt.Errorf("bathymetry is [%d, %d], grid is [%d, %d]", rec.Bathymetry.NLat, rec.Bathymetry.NLon, g.NLat(), g.NLon())
	}
	if len(rec.CastLon) != len(rec.CastLat) {
		return fmt.Errorf("cast coordinates differ in length: %d vs %d", len(rec.CastLon), len(rec.CastLat))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create record file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := writeRecord(tmpPath, rec); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move record into place: %w", err)
	}
	return nil
}

func writeRecord(path string, rec *domain.ClimatologyRecord) (err error) {
	g := rec.Grid
	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create record file: %w", err)
	}
	defer func() {
		if cerr := nc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close record file: %w", cerr)
		}
	}()

	//nolint:gosec // G115: lengths are non-negative.
	lonDim, err := nc.AddDim("lon", uint64(g.NLon()))
	if err != nil {
		return fmt.Errorf("failed to add lon dimension: %w", err)
	}
	//nolint:gosec // G115: lengths are non-negative.
	latDim, err := nc.AddDim("lat", uint64(g.NLat()))
	if err != nil {
		return fmt.Errorf("failed to add lat dimension: %w", err)
	}
	//nolint:gosec // G115: lengths are non-negative.
	castDim, err := nc.AddDim("cast", uint64(len(rec.CastLon)))
	if err != nil {
		return fmt.Errorf("failed to add cast dimension: %w", err)
	}
	//nolint:gosec // G115: lengths are non-negative.
	binDim, err := nc.AddDim("bin", uint64(rec.Bins.Len()))
	if err != nil {
		return fmt.Errorf("failed to add bin dimension: %w", err)
	}

	vars := []struct {
		name string
		dims []netcdf.Dim
		data []float64
	}{
		{rec.Variable.RecordName(), []netcdf.Dim{latDim, lonDim}, rec.Bottom.Values},
		{lonRegName, []netcdf.Dim{lonDim}, g.Lon},
		{latRegName, []netcdf.Dim{latDim}, g.Lat},
		{lonOrigName, []netcdf.Dim{castDim}, rec.CastLon},
		{latOrigName, []netcdf.Dim{castDim}, rec.CastLat},
		{bathyName, []netcdf.Dim{latDim, lonDim}, rec.Bathymetry.Values},
		{binsName, []netcdf.Dim{binDim}, rec.Bins.Centers},
	}
	handles := make([]netcdf.Var, len(vars))
	for i, v := range vars {
		handles[i], err = nc.AddVar(v.name, netcdf.DOUBLE, v.dims)
		if err != nil {
			return fmt.Errorf("failed to add variable %s: %w", v.name, err)
		}
	}

	attrs := []struct {
		name, value string
	}{
		{attrVariable, rec.Variable.String()},
		{attrSeason, rec.Season.String()},
		{attrFingerprint, rec.Fingerprint},
	}
	for _, a := range attrs {
		if a.value == "" {
			continue
		}
		if err := nc.Attr(a.name).WriteBytes([]byte(a.value)); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", a.name, err)
		}
	}
	if err := nc.Attr(attrDZ).WriteFloat64s([]float64{rec.Bins.DZ}); err != nil {
		return fmt.Errorf("failed to write attribute %s: %w", attrDZ, err)
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}
	for i, v := range vars {
		if len(v.data) == 0 {
			continue
		}
		if err := handles[i].WriteFloat64s(v.data); err != nil {
			return fmt.Errorf("failed to write variable %s: %w", v.name, err)
		}
	}
	return nil
}

// Load reads the record at path. The grid spacing is re-derived from the
// stored axes.
func (s *NetCDFStore) Load(path string) (*domain.ClimatologyRecord, error) {
	if !s.Exists(path) {
		return nil, fmt.Errorf("failed to open record %s: %w", path, domain.ErrNotFound)
	}
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	rec := &domain.ClimatologyRecord{}
	if name, ok := readStringAttr(nc, attrVariable); ok {
		if rec.Variable, err = domain.ParseVariable(name); err != nil {
			return nil, err
		}
	} else if _, err := nc.Var(domain.Salinity.RecordName()); err == nil {
		rec.Variable = domain.Salinity
	}
	if season, ok := readStringAttr(nc, attrSeason); ok {
		rec.Season, _ = domain.ParseSeason(season)
	}
	rec.Fingerprint, _ = readStringAttr(nc, attrFingerprint)

	lon, err := readVar(nc, lonRegName)
	if err != nil {
		return nil, err
	}
	lat, err := readVar(nc, latRegName)
	if err != nil {
		return nil, err
	}
	if rec.Grid, err = domain.NewRegularGrid(lon, lat); err != nil {
		return nil, fmt.Errorf("invalid record grid: %w", err)
	}

	bottom, err := readVar(nc, rec.Variable.RecordName())
	if err != nil {
		return nil, err
	}
	bathy, err := readVar(nc, bathyName)
	if err != nil {
		return nil, err
	}
	cells := rec.Grid.Cells()
	if len(bottom) != cells || len(bathy) != cells {
		return nil, fmt.Errorf("record fields do not match the grid: %d and %d values for %d cells", len(bottom), len(bathy), cells)
	}
	rec.Bottom = domain.Field{NLat: rec.Grid.NLat(), NLon: rec.Grid.NLon(), Values: bottom}
	rec.Bathymetry = domain.Field{NLat: rec.Grid.NLat(), NLon: rec.Grid.NLon(), Values: bathy}

	if rec.CastLon, err = readVar(nc, lonOrigName); err != nil {
		return nil, err
	}
	if rec.CastLat, err = readVar(nc, latOrigName); err != nil {
		return nil, err
	}

	centers, err := readVar(nc, binsName)
	if err != nil {
		return nil, err
	}
	rec.Bins = domain.DepthBins{Centers: centers}
	if dz, ok := readFloatAttr(nc, attrDZ); ok {
		rec.Bins.DZ = dz
	} else if len(centers) > 1 {
		rec.Bins.DZ = centers[1] - centers[0]
	}
	return rec, nil
}

// readVar reads a whole variable of any rank as a flat slice.
func readVar(nc netcdf.Dataset, name string) ([]float64, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	n, err := v.Len()
	if err != nil {
		return nil, fmt.Errorf("failed to get length of %s: %w", name, err)
	}
	data := make([]float64, n)
	if n == 0 {
		return data, nil
	}
	if err := v.ReadFloat64s(data); err != nil {
		return nil, fmt.Errorf("failed to read variable %s: %w", name, err)
	}
	return data, nil
}

func readStringAttr(nc netcdf.Dataset, name string) (string, bool) {
	a := nc.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return string(buf), true
}

func readFloatAttr(nc netcdf.Dataset, name string) (float64, bool) {
	a := nc.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf := make([]float64, n)
	if err := a.ReadFloat64s(buf); err != nil {
		return 0, false
	}
	return buf[0], true
}

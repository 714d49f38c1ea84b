// Command fixture-generator writes a synthetic profile dataset and GEBCO-like
// bathymetry for a region, for trying bottomgrid end to end without the
// archive.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/sirupsen/logrus"
)

// RegionalGrid defines the geographic bounds and resolution
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// fillValue marks missing profile samples.
const fillValue = -999

var epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

var log = logrus.New()

func main() {
	// Command line flags
	outDir := flag.String("out", "./data/fixtures", "Output directory for NetCDF files")
	region := flag.String("region", "newfoundland", "Region: newfoundland or custom")
	latMin := flag.Float64("lat-min", 42.0, "Minimum latitude (custom region)")
	latMax := flag.Float64("lat-max", 56.0, "Maximum latitude (custom region)")
	lonMin := flag.Float64("lon-min", -60.0, "Minimum longitude (custom region)")
	lonMax := flag.Float64("lon-max", -45.0, "Maximum longitude (custom region)")
	resolution := flag.Float64("resolution", 1.0/60, "Bathymetry resolution in degrees")
	firstYear := flag.Int("first-year", 1981, "First year of casts")
	lastYear := flag.Int("last-year", 2010, "Last year of casts")
	perYear := flag.Int("casts", 400, "Casts per year")
	dz := flag.Float64("dz", 1, "Vertical sampling of the casts in metres")
	seed := flag.Int64("seed", 1, "Random seed of cast positions")

	flag.Parse()

	var grid RegionalGrid
	switch *region {
	case "newfoundland":
		grid = RegionalGrid{LatMin: 42, LatMax: 56, LonMin: -60, LonMax: -45, Resolution: *resolution}
	case "custom":
		grid = RegionalGrid{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax, Resolution: *resolution}
	default:
		log.Fatalf("Unknown region: %s (use newfoundland or custom)", *region)
	}
	if *lastYear < *firstYear {
		log.Fatalf("Last year %d precedes first year %d", *lastYear, *firstYear)
	}

	log.Infof("Generating fixtures for region: %s", *region)
	log.Infof("Grid: %.1f°-%.1f°N, %.1f°-%.1f°E, resolution: %.4f°",
		grid.LatMin, grid.LatMax, grid.LonMin, grid.LonMax, grid.Resolution)

	//nolint:gosec // G301: Standard output directory permissions.
	if err := os.MkdirAll(filepath.Join(*outDir, "profiles"), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	bathyPath := filepath.Join(*outDir, "gebco.nc")
	if err := writeBathymetry(bathyPath, grid); err != nil {
		log.Fatalf("Failed to write bathymetry: %v", err)
	}
	log.Infof("Generated %s", bathyPath)

	rng := rand.New(rand.NewSource(*seed))
	for year := *firstYear; year <= *lastYear; year++ {
		path := filepath.Join(*outDir, "profiles", fmt.Sprintf("%d.nc", year))
		if err := writeProfiles(path, grid, year, *perYear, *dz, rng); err != nil {
			log.Warnf("Failed to generate %d: %v", year, err)
			continue
		}
		log.Debugf("Generated %s", path)
	}

	log.Info("=== Generation Complete ===")
	log.Infof("Files created in: %s", *outDir)
	log.Infof("Casts: %d years x %d", *lastYear-*firstYear+1, *perYear)
}

// depthAt is the synthetic seafloor depth in metres (positive down): a shelf
// that deepens offshore to the east and north, with a shallow bank.
func depthAt(grid RegionalGrid, lon, lat float64) float64 {
	x := (lon - grid.LonMin) / (grid.LonMax - grid.LonMin)
	y := (lat - grid.LatMin) / (grid.LatMax - grid.LatMin)
	d := 60 + 900*x*x + 300*y
	// Bank centred a third of the way across the region.
	bx, by := x-0.35, y-0.3
	d -= 120 * math.Exp(-(bx*bx+by*by)/0.01)
	// Coast along the western edge.
	if x < 0.05 {
		d = -20
	}
	return d
}

// temperatureAt is a two-layer profile: a seasonal surface layer over a cold
// intermediate layer, warming again in deep slope water.
func temperatureAt(z float64, month int, lat float64) float64 {
	surface := 2 + 8*math.Sin(math.Pi*float64(month-3)/6)
	if month < 3 || month > 9 {
		surface = 0
	}
	cil := -1.2 + 0.1*(lat-47)
	if z < 50 {
		return cil + (surface-cil)*math.Exp(-z/15)
	}
	if z < 250 {
		return cil
	}
	return cil + 4*(1-math.Exp(-(z-250)/200))
}

func salinityAt(z float64) float64 {
	return 31.5 + 3*(1-math.Exp(-z/150))
}

// writeBathymetry writes a GEBCO 2-D elevation file.
func writeBathymetry(path string, grid RegionalGrid) error {
	nLat := int(math.Round((grid.LatMax-grid.LatMin)/grid.Resolution)) + 1
	nLon := int(math.Round((grid.LonMax-grid.LonMin)/grid.Resolution)) + 1

	lat := make([]float64, nLat)
	for i := range lat {
		lat[i] = grid.LatMin + float64(i)*grid.Resolution
	}
	lon := make([]float64, nLon)
	for j := range lon {
		lon[j] = grid.LonMin + float64(j)*grid.Resolution
	}
	elev := make([]float32, nLat*nLon)
	for i := range lat {
		for j := range lon {
			elev[i*nLon+j] = float32(-depthAt(grid, lon[j], lat[i]))
		}
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	latDim, err := ds.AddDim("lat", uint64(nLat))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("lon", uint64(nLon))
	if err != nil {
		return err
	}
	latVar, err := ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	lonVar, err := ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	elevVar, err := ds.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})
	if err != nil {
		return err
	}
	if err := ds.EndDef(); err != nil {
		return err
	}
	if err := latVar.WriteFloat64s(lat); err != nil {
		return err
	}
	if err := lonVar.WriteFloat64s(lon); err != nil {
		return err
	}
	return elevVar.WriteFloat32s(elev)
}

// writeProfiles writes one year of casts sampled every dz metres down to the
// seafloor. Samples below the seafloor are fill values.
func writeProfiles(path string, grid RegionalGrid, year, n int, dz float64, rng *rand.Rand) error {
	var maxDepth float64
	lons := make([]float64, n)
	lats := make([]float64, n)
	days := make([]float64, n)
	months := make([]int, n)
	for c := 0; c < n; c++ {
		lons[c] = grid.LonMin + rng.Float64()*(grid.LonMax-grid.LonMin)
		lats[c] = grid.LatMin + rng.Float64()*(grid.LatMax-grid.LatMin)
		when := time.Date(year, time.January, 1+rng.Intn(365), 0, 0, 0, 0, time.UTC)
		months[c] = int(when.Month())
		days[c] = when.Sub(epoch).Hours() / 24
		maxDepth = max(maxDepth, depthAt(grid, lons[c], lats[c]))
	}
	nLevels := int(maxDepth/dz) + 1
	levels := make([]float64, nLevels)
	for k := range levels {
		levels[k] = float64(k) * dz
	}

	temp := make([]float32, n*nLevels)
	sal := make([]float32, n*nLevels)
	for c := 0; c < n; c++ {
		bottom := depthAt(grid, lons[c], lats[c])
		for k, z := range levels {
			if z > bottom {
				temp[c*nLevels+k] = fillValue
				sal[c*nLevels+k] = fillValue
				continue
			}
			temp[c*nLevels+k] = float32(temperatureAt(z, months[c], lats[c]) + 0.2*rng.NormFloat64())
			sal[c*nLevels+k] = float32(salinityAt(z) + 0.05*rng.NormFloat64())
		}
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	timeDim, err := ds.AddDim("time", uint64(n))
	if err != nil {
		return err
	}
	levelDim, err := ds.AddDim("level", uint64(nLevels))
	if err != nil {
		return err
	}
	vlon, _ := ds.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	vlat, _ := ds.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	vtime, _ := ds.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	vlevel, _ := ds.AddVar("level", netcdf.DOUBLE, []netcdf.Dim{levelDim})
	vtemp, _ := ds.AddVar("temperature", netcdf.FLOAT, []netcdf.Dim{timeDim, levelDim})
	vsal, err := ds.AddVar("salinity", netcdf.FLOAT, []netcdf.Dim{timeDim, levelDim})
	if err != nil {
		return err
	}
	if err := vtime.Attr("units").WriteBytes([]byte("days since 1900-01-01 00:00:00")); err != nil {
		return err
	}
	for _, v := range []netcdf.Var{vtemp, vsal} {
		if err := v.Attr("_FillValue").WriteFloat32s([]float32{fillValue}); err != nil {
			return err
		}
	}
	if err := ds.EndDef(); err != nil {
		return err
	}

	for _, w := range []struct {
		v    netcdf.Var
		data []float64
	}{{vlon, lons}, {vlat, lats}, {vtime, days}, {vlevel, levels}} {
		if err := w.v.WriteFloat64s(w.data); err != nil {
			return err
		}
	}
	if err := vtemp.WriteFloat32s(temp); err != nil {
		return err
	}
	return vsal.WriteFloat32s(sal)
}

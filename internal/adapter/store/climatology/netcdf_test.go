package climatology

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testRecord(t *testing.T) *domain.ClimatologyRecord {
	t.Helper()
	grid, err := domain.NewRegularGrid([]float64{-59.5, -58.5, -57.5}, []float64{46.5, 47.5})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	nan := math.NaN()
	bottom, _ := domain.FieldFromRows([][]float64{{1.25, nan, -0.5}, {3, 2.75, nan}})
	bathy, _ := domain.FieldFromRows([][]float64{{-120, -5, -300}, {-80, -95.5, nan}})
	bins, err := domain.NewDepthBins(5, 100)
	if err != nil {
		t.Fatalf("bins: %v", err)
	}
	return &domain.ClimatologyRecord{
		Variable:   domain.Temperature,
		Season:     domain.SeasonFall,
		Bottom:     bottom,
		Grid:       grid,
		Bathymetry: bathy,
		Bins:       bins,
		CastLon:    []float64{-59.4, -58.1},
		CastLat:    []float64{46.7, 47.2},
	}
}

func sameBits(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func TestRecordRoundTrip(t *testing.T) {
	rec := testRecord(t)
	rec.Fingerprint = "abc123"
	path := filepath.Join(t.TempDir(), "Tbot_climato_fall.nc")

	s := NewNetCDFStore()
	if err := s.Save(path, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !sameBits(got.Bottom.Values, rec.Bottom.Values) {
		t.Errorf("bottom field differs: %v vs %v", got.Bottom.Values, rec.Bottom.Values)
	}
	if !sameBits(got.Bathymetry.Values, rec.Bathymetry.Values) {
		t.Errorf("bathymetry differs: %v vs %v", got.Bathymetry.Values, rec.Bathymetry.Values)
	}
	if !sameBits(got.Grid.Lon, rec.Grid.Lon) || !sameBits(got.Grid.Lat, rec.Grid.Lat) || !got.Grid.Equal(rec.Grid) {
		t.Errorf("grid differs: %+v vs %+v", got.Grid, rec.Grid)
	}
	if !sameBits(got.Bins.Centers, rec.Bins.Centers) || got.Bins.DZ != rec.Bins.DZ {
		t.Errorf("depth bins differ: %+v vs %+v", got.Bins, rec.Bins)
	}
	if !sameBits(got.CastLon, rec.CastLon) || !sameBits(got.CastLat, rec.CastLat) {
		t.Errorf("cast coordinates differ")
	}
	if got.Variable != domain.Temperature || got.Season != domain.SeasonFall || got.Fingerprint != "abc123" {
		t.Errorf("metadata differs: %v %v %q", got.Variable, got.Season, got.Fingerprint)
	}
}

func TestRecordRoundTripSalinityWithoutCasts(t *testing.T) {
	rec := testRecord(t)
	rec.Variable = domain.Salinity
	rec.CastLon, rec.CastLat = nil, nil
	path := filepath.Join(t.TempDir(), "Sbot.nc")

	s := NewNetCDFStore()
	if err := s.Save(path, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Variable != domain.Salinity {
		t.Errorf("expected salinity record, got %v", got.Variable)
	}
	if len(got.CastLon) != 0 {
		t.Errorf("expected no cast coordinates, got %v", got.CastLon)
	}
	if !sameBits(got.Bottom.Values, rec.Bottom.Values) {
		t.Errorf("bottom field differs")
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Tbot_climato_fall.nc")
	s := NewNetCDFStore()

	first := testRecord(t)
	if err := s.Save(path, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := testRecord(t)
	second.Bottom.Set(0, 0, 9)
	if err := s.Save(path, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := got.Bottom.At(0, 0); v != 9 {
		t.Errorf("expected the replaced record, got %g", v)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "Tbot_climato_fall.nc" {
		t.Errorf("expected only the record in %s, got %v", dir, entries)
	}
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the record path makes the final rename fail.
	path := filepath.Join(dir, "Tbot.nc")
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Join(path, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewNetCDFStore()
	if err := s.Save(path, testRecord(t)); err == nil {
		t.Fatal("expected Save to fail")
	}
	if s.Exists(path) {
		t.Error("a failed save must not leave a record")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}

	c := NewCache(s, false, quietLogger())
	if _, ok, _ := c.Lookup(path, domain.RunParams{}); ok {
		t.Error("nothing was saved, the cache must miss")
	}
}

func TestCacheFingerprint(t *testing.T) {
	dir := t.TempDir()
	params := domain.RunParams{
		Variable: domain.Temperature, Season: domain.SeasonSpring,
		Years: domain.YearRange{First: 1981, Last: 2010}, DZ: 5, ZMax: 1000,
		DC: 0.1, LonMin: -60, LonMax: -45, LatMin: 42, LatMax: 56,
	}
	other := params
	other.Years.Last = 2020

	path := DefaultPath(dir, params)
	if !strings.HasPrefix(filepath.Base(path), "Tbot_climato_spring_1981-2010_") {
		t.Errorf("unexpected default path %s", path)
	}
	if DefaultPath(dir, other) == path {
		t.Error("different parameters must give different default paths")
	}

	rs := NewNetCDFStore()
	lenient := NewCache(rs, false, quietLogger())
	if _, ok, err := lenient.Lookup(path, params); ok || err != nil {
		t.Fatalf("expected a miss before saving, got ok=%v err=%v", ok, err)
	}
	if err := lenient.Store(path, params, testRecord(t)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if rec, ok, err := lenient.Lookup(path, params); !ok || err != nil || rec == nil {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := lenient.Lookup(path, other); !ok || err != nil {
		t.Errorf("lenient cache should load a stale record, got ok=%v err=%v", ok, err)
	}

	strict := NewCache(rs, true, quietLogger())
	if _, _, err := strict.Lookup(path, other); !errors.Is(err, domain.ErrStaleRecord) {
		t.Errorf("expected ErrStaleRecord, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	rs := NewNetCDFStore()
	if err := rs.Save(filepath.Join(dir, "Tbot_fall.nc"), testRecord(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cat := NewCatalog(dir, rs)
	names, err := cat.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "Tbot_fall" {
		t.Fatalf("unexpected products %v", names)
	}

	rec, err := cat.Get("Tbot_fall")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	again, _ := cat.Get("Tbot_fall")
	if rec != again {
		t.Error("second Get should return the cached record")
	}

	for _, name := range []string{"absent", "../Tbot_fall", ""} {
		if _, err := cat.Get(name); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

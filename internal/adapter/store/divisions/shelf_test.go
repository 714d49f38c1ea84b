package divisions

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"

	"go.azmp.io/bottom-fields/internal/domain"
)

func axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	return out
}

// shelfBathymetry is 200 m deep west of 52W and north of 45N, 2000 m
// elsewhere.
func shelfBathymetry(t *testing.T) (domain.Field, domain.RegularGrid) {
	t.Helper()
	grid, err := domain.NewRegularGrid(axis(-60, 0.5, 21), axis(44, 0.5, 21))
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	bathy := domain.NewField(grid.NLat(), grid.NLon())
	for i, lat := range grid.Lat {
		for j, lon := range grid.Lon {
			z := -2000.0
			if lon < -52 && lat > 45 {
				z = -200
			}
			bathy.Set(i, j, z)
		}
	}
	return bathy, grid
}

func inside(p geom.Polygon, lon, lat float64) bool {
	return geom.Point{X: lon, Y: lat}.Within(p) != geom.Outside
}

func TestTraceIsobath(t *testing.T) {
	bathy, grid := shelfBathymetry(t)
	lines := TraceIsobath(bathy, grid, ShelfDepth)
	if len(lines) != 1 {
		t.Fatalf("expected one isobath, got %d", len(lines))
	}
	line := lines[0]
	if len(line) != 34 {
		t.Errorf("expected 34 vertices, got %d", len(line))
	}
	wantLon := -52.5 + 0.5*800.0/1800.0
	wantLat := 45 + 0.5*1000.0/1800.0
	for _, p := range line {
		onEast := math.Abs(p.X-wantLon) < 1e-9
		onSouth := math.Abs(p.Y-wantLat) < 1e-9
		if !onEast && !onSouth {
			t.Errorf("vertex %v is off the shelf break", p)
		}
	}

	// A single deep cell gives a closed loop.
	pitGrid, _ := domain.NewRegularGrid(axis(0, 1, 5), axis(0, 1, 5))
	pit := domain.NewField(5, 5)
	for n := range pit.Values {
		pit.Values[n] = -200
	}
	pit.Set(2, 2, -2000)
	loops := TraceIsobath(pit, pitGrid, ShelfDepth)
	if len(loops) != 1 || len(loops[0]) != 5 {
		t.Fatalf("expected one closed 4-segment loop, got %v", loops)
	}
	if loops[0][0] != loops[0][4] {
		t.Errorf("loop is not closed: %v", loops[0])
	}

	// Missing corners break the line.
	pit.Invalidate(1, 2)
	if loops := TraceIsobath(pit, pitGrid, ShelfDepth); len(loops) != 1 || loops[0][0] == loops[0][len(loops[0])-1] {
		t.Errorf("expected one open line around the missing corner, got %v", loops)
	}

	if lines := TraceIsobath(pit, grid, ShelfDepth); lines != nil {
		t.Error("mismatched grid should give no isobath")
	}
}

func TestBuildShelf(t *testing.T) {
	bathy, grid := shelfBathymetry(t)
	coast := []geom.Point{{X: -58, Y: 53.5}, {X: -58, Y: 49}}
	shelf, err := BuildShelf(bathy, grid, coast)
	if err != nil {
		t.Fatalf("BuildShelf: %v", err)
	}

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"shelf interior", -54, 50, true},
		{"near the coast", -57.5, 52, true},
		{"deep water east", -51, 50, false},
		{"south of the break", -54, 44.5, false},
		{"laurentian channel", -57, 47, false},
		{"west of the coast", -59, 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inside(shelf, tt.lon, tt.lat); got != tt.want {
				t.Errorf("inside(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
		})
	}

	ring := shelf[0]
	if ring[0].Y != 54 {
		t.Errorf("ring should start at the northern end of the isobath, got %v", ring[0])
	}
	if last := ring[len(ring)-1]; last != (geom.Point{X: -58, Y: 53.5}) {
		t.Errorf("ring should end at the northern end of the coast, got %v", last)
	}

	flat := domain.NewField(grid.NLat(), grid.NLon())
	for n := range flat.Values {
		flat.Values[n] = -200
	}
	if _, err := BuildShelf(flat, grid, coast); err == nil {
		t.Error("expected an error without an isobath")
	}
}

func TestShelfStore(t *testing.T) {
	bathy, grid := shelfBathymetry(t)
	coast := []geom.Point{{X: -58, Y: 53.5}, {X: -58, Y: 49}}
	path := filepath.Join(t.TempDir(), "NLshelf_definition.npy")

	builds := 0
	build := func() (geom.Polygon, error) {
		builds++
		return BuildShelf(bathy, grid, coast)
	}
	store := NewShelfStore()
	first, err := store.Get(path, build)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("shelf was not saved: %v", err)
	}
	if _, err := store.Get(path, build); err != nil || builds != 1 {
		t.Errorf("second Get should reuse the shelf, builds %d err %v", builds, err)
	}

	// A fresh store reads the saved file instead of rebuilding.
	fail := func() (geom.Polygon, error) { return nil, errors.New("rebuilt") }
	loaded, err := NewShelfStore().Get(path, fail)
	if err != nil {
		t.Fatalf("Get from file: %v", err)
	}
	if len(loaded[0]) != len(first[0]) {
		t.Fatalf("loaded %d vertices, saved %d", len(loaded[0]), len(first[0]))
	}
	for k := range first[0] {
		if loaded[0][k] != first[0][k] {
			t.Errorf("vertex %d: loaded %v, saved %v", k, loaded[0][k], first[0][k])
		}
	}

	if _, err := NewShelfStore().Get(filepath.Join(t.TempDir(), "absent.npy"), fail); err == nil {
		t.Error("expected the build error")
	}
	if err := SaveContour(filepath.Join(t.TempDir(), "shelf.csv"), first); err == nil {
		t.Error("expected an error for a non-npy path")
	}
}

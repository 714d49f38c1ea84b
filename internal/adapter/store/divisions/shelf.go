package divisions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/geom"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"go.azmp.io/bottom-fields/internal/domain"
)

// ShelfDepth is the isobath, in metres, bounding the NL shelf.
const ShelfDepth = 1000.0

// Shelf closure. Isobath vertices south-west of (shelfDropLon, shelfDropLat)
// belong to the Laurentian Channel and are dropped; the ring then crosses
// Newfoundland along shelfLandLat to shelfLandLon.
const (
	shelfDropLon = -56.0
	shelfDropLat = 46.0
	shelfLandLat = 48.0
	shelfLandLon = -57.0
)

// edgeKey names a grid edge: the horizontal edge from (i, j) to (i, j+1), or
// the vertical one from (i, j) to (i+1, j).
type edgeKey struct {
	i, j     int
	vertical bool
}

type isoSegment struct {
	a, b edgeKey
}

// TraceIsobath returns the polylines along which the seafloor of bathy
// (elevation, negative below sea level) crosses depth metres. Lines are
// ordered longest first; closed lines repeat their first vertex. Cells with a
// corner without data are skipped.
func TraceIsobath(bathy domain.Field, grid domain.RegularGrid, depth float64) []geom.LineString {
	if bathy.NLat != grid.NLat() || bathy.NLon != grid.NLon() {
		return nil
	}
	level := func(i, j int) (float64, bool) {
		z, ok := bathy.At(i, j)
		return -z - depth, ok
	}
	crossing := func(k edgeKey) geom.Point {
		i2, j2 := k.i, k.j+1
		if k.vertical {
			i2, j2 = k.i+1, k.j
		}
		v0, _ := level(k.i, k.j)
		v1, _ := level(i2, j2)
		t := v0 / (v0 - v1)
		return geom.Point{
			X: grid.Lon[k.j] + t*(grid.Lon[j2]-grid.Lon[k.j]),
			Y: grid.Lat[k.i] + t*(grid.Lat[i2]-grid.Lat[k.i]),
		}
	}

	var segs []isoSegment
	for i := 0; i+1 < bathy.NLat; i++ {
		for j := 0; j+1 < bathy.NLon; j++ {
			segs = append(segs, cellSegments(level, i, j)...)
		}
	}

	adj := make(map[edgeKey][]int, 2*len(segs))
	for n, s := range segs {
		adj[s.a] = append(adj[s.a], n)
		adj[s.b] = append(adj[s.b], n)
	}
	used := make([]bool, len(segs))
	walk := func(start edgeKey, n int) geom.LineString {
		line := geom.LineString{crossing(start)}
		cur := start
		for n >= 0 {
			used[n] = true
			if segs[n].a == cur {
				cur = segs[n].b
			} else {
				cur = segs[n].a
			}
			line = append(line, crossing(cur))
			n = -1
			for _, m := range adj[cur] {
				if !used[m] {
					n = m
					break
				}
			}
		}
		return line
	}

	var lines []geom.LineString
	// Open lines start at an edge with a single segment.
	for n, s := range segs {
		if used[n] {
			continue
		}
		switch {
		case len(adj[s.a]) == 1:
			lines = append(lines, walk(s.a, n))
		case len(adj[s.b]) == 1:
			lines = append(lines, walk(s.b, n))
		}
	}
	for n, s := range segs {
		if !used[n] {
			lines = append(lines, walk(s.a, n))
		}
	}
	sort.SliceStable(lines, func(a, b int) bool { return len(lines[a]) > len(lines[b]) })
	return lines
}

// cellSegments runs marching squares on the cell with lower-left corner
// (i, j). Saddles are resolved with the mean of the four corners.
func cellSegments(level func(i, j int) (float64, bool), i, j int) []isoSegment {
	va, okA := level(i, j)
	vb, okB := level(i, j+1)
	vc, okC := level(i+1, j+1)
	vd, okD := level(i+1, j)
	if !okA || !okB || !okC || !okD {
		return nil
	}
	a, b, c, d := va >= 0, vb >= 0, vc >= 0, vd >= 0

	bottom := edgeKey{i: i, j: j}
	right := edgeKey{i: i, j: j + 1, vertical: true}
	top := edgeKey{i: i + 1, j: j}
	left := edgeKey{i: i, j: j, vertical: true}

	var crossed []edgeKey
	if a != b {
		crossed = append(crossed, bottom)
	}
	if b != c {
		crossed = append(crossed, right)
	}
	if c != d {
		crossed = append(crossed, top)
	}
	if d != a {
		crossed = append(crossed, left)
	}

	switch len(crossed) {
	case 2:
		return []isoSegment{{crossed[0], crossed[1]}}
	case 4:
		if centre := (va+vb+vc+vd)/4 >= 0; centre == a {
			// a and c joined through the centre; cut off b and d.
			return []isoSegment{{bottom, right}, {top, left}}
		}
		return []isoSegment{{bottom, left}, {right, top}}
	}
	return nil
}

// BuildShelf derives the NL shelf polygon from gridded bathymetry. The
// longest ShelfDepth isobath, run north to south and trimmed of its
// Laurentian Channel vertices, is closed across Newfoundland and back north
// along the coastal contour.
func BuildShelf(bathy domain.Field, grid domain.RegularGrid, coast []geom.Point) (geom.Polygon, error) {
	lines := TraceIsobath(bathy, grid, ShelfDepth)
	if len(lines) == 0 {
		return nil, fmt.Errorf("no %g m isobath in bathymetry", ShelfDepth)
	}
	iso := northToSouth(lines[0])

	ring := make([]geom.Point, 0, len(iso)+len(coast)+2)
	for _, p := range iso {
		if p.X < shelfDropLon && p.Y < shelfDropLat {
			continue
		}
		ring = append(ring, p)
	}
	if len(ring) < 2 {
		return nil, fmt.Errorf("%g m isobath has %d vertices outside the Laurentian Channel", ShelfDepth, len(ring))
	}
	last := ring[len(ring)-1]
	ring = append(ring,
		geom.Point{X: last.X, Y: shelfLandLat},
		geom.Point{X: shelfLandLon, Y: shelfLandLat},
	)

	// The coast runs back north to the start of the isobath.
	coast = northToSouth(coast)
	for k := len(coast) - 1; k >= 0; k-- {
		ring = append(ring, coast[k])
	}
	if len(ring) < minRingPoints {
		return nil, fmt.Errorf("shelf has %d vertices, need at least %d", len(ring), minRingPoints)
	}
	return geom.Polygon{ring}, nil
}

func northToSouth(line []geom.Point) []geom.Point {
	if len(line) < 2 || line[0].Y >= line[len(line)-1].Y {
		return line
	}
	out := make([]geom.Point, len(line))
	for k, p := range line {
		out[len(line)-1-k] = p
	}
	return out
}

// OuterRing returns the outer ring of a single-polygon contour.
func OuterRing(p geom.Polygonal) ([]geom.Point, error) {
	polys := p.Polygons()
	if len(polys) != 1 || len(polys[0]) == 0 {
		return nil, fmt.Errorf("contour must be a single polygon, got %d", len(polys))
	}
	return polys[0][0], nil
}

// ShelfStore keeps shelf definitions on disk as (n, 2) .npy vertex arrays
// and in memory by path.
type ShelfStore struct {
	mu      sync.Mutex
	shelves map[string]geom.Polygon
}

// NewShelfStore returns an empty store.
func NewShelfStore() *ShelfStore {
	return &ShelfStore{shelves: make(map[string]geom.Polygon)}
}

// Get returns the shelf stored at path. A missing file is built with build
// and saved to path first.
func (s *ShelfStore) Get(path string, build func() (geom.Polygon, error)) (geom.Polygon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if shelf, ok := s.shelves[path]; ok {
		return shelf, nil
	}

	var shelf geom.Polygon
	contour, err := LoadExclusion(path)
	switch {
	case err == nil:
		ring, err := OuterRing(contour)
		if err != nil {
			return nil, fmt.Errorf("shelf %s: %w", path, err)
		}
		shelf = geom.Polygon{ring}
	case errors.Is(err, domain.ErrMissingInput):
		if shelf, err = build(); err != nil {
			return nil, fmt.Errorf("failed to build shelf: %w", err)
		}
		if err := SaveContour(path, shelf); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	s.shelves[path] = shelf
	return shelf, nil
}

// SaveContour writes the outer ring of p to path as an (n, 2) .npy array.
// The file is replaced atomically.
func SaveContour(path string, p geom.Polygon) error {
	if !strings.EqualFold(filepath.Ext(path), ".npy") {
		return fmt.Errorf("contour path %s must end in .npy", path)
	}
	if len(p) == 0 || len(p[0]) < minRingPoints {
		return fmt.Errorf("contour has too few vertices")
	}
	ring := p[0]
	m := mat.NewDense(len(ring), 2, nil)
	for k, pt := range ring {
		m.Set(k, 0, pt.X)
		m.Set(k, 1, pt.Y)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create contour file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := npyio.Write(tmp, m); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write contour: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write contour: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save contour: %w", err)
	}
	return nil
}

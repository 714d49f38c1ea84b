// Package divisions provides the NAFO division polygons and the fall
// exclusion contour.
package divisions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ctessum/geom"

	"go.azmp.io/bottom-fields/internal/domain"
)

// nafoVertices holds the ring of each division as (lon, lat) pairs.
var nafoVertices = map[domain.DivisionCode][][2]float64{
	domain.Div2J: {
		{-59.778, 55.33}, {-47.529, 55.33}, {-42, 52.25}, {-55.712, 52.25},
	},
	domain.Div3K: {
		{-55.425, 51.583}, {-55.425, 52.25}, {-42, 52.25}, {-42, 49.25}, {-53.466, 49.25},
	},
	domain.Div3L: {
		{-53.466, 49.25}, {-46.5, 49.25}, {-46.5, 46}, {-54.5, 46}, {-54.2, 46.815},
	},
	domain.Div3N: {
		{-51, 46}, {-46.5, 46}, {-46.5, 39}, {-50, 39}, {-51, 39.927}, {-51, 46},
	},
	domain.Div3O: {
		{-54.5, 46}, {-51, 46}, {-51, 39.927}, {-54.5, 43.064}, {-54.5, 46},
	},
	domain.Div3Ps: {
		{-57.523, 47.631}, {-58.82, 46.843}, {-54.5, 43.064}, {-54.5, 46}, {-54.2, 46.815},
	},
}

// Catalog is the immutable set of division polygons plus an optional
// exclusion contour. It implements domain.Region.
type Catalog struct {
	divisions map[domain.DivisionCode]geom.Polygon
	exclusion geom.Polygonal
}

var (
	nafoOnce sync.Once
	nafo     map[domain.DivisionCode]geom.Polygon
)

// nafoPolygons builds the division table on first use.
func nafoPolygons() map[domain.DivisionCode]geom.Polygon {
	nafoOnce.Do(func() {
		nafo = make(map[domain.DivisionCode]geom.Polygon, len(nafoVertices))
		for code, ring := range nafoVertices {
			nafo[code] = polygonFromPairs(ring)
		}
	})
	return nafo
}

func polygonFromPairs(pairs [][2]float64) geom.Polygon {
	ring := make([]geom.Point, len(pairs))
	for i, p := range pairs {
		ring[i] = geom.Point{X: p[0], Y: p[1]}
	}
	return geom.Polygon{ring}
}

// NewCatalog returns the NAFO catalog with the given exclusion contour, which
// may be nil.
func NewCatalog(exclusion geom.Polygonal) *Catalog {
	return &Catalog{divisions: nafoPolygons(), exclusion: exclusion}
}

// Polygon returns the polygon of a division.
func (c *Catalog) Polygon(code domain.DivisionCode) (geom.Polygon, error) {
	p, ok := c.divisions[code]
	if !ok {
		return nil, fmt.Errorf("division %s: %w", code, domain.ErrNotFound)
	}
	return p, nil
}

// Codes returns the division codes in catalog order.
func (c *Catalog) Codes() []domain.DivisionCode {
	codes := make([]domain.DivisionCode, 0, len(c.divisions))
	for _, code := range domain.AllDivisions {
		if _, ok := c.divisions[code]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// Vertices returns the ring of a division as (lon, lat) pairs.
func (c *Catalog) Vertices(code domain.DivisionCode) ([][2]float64, error) {
	p, err := c.Polygon(code)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, len(p[0]))
	for i, pt := range p[0] {
		out[i] = [2]float64{pt.X, pt.Y}
	}
	return out, nil
}

// HasExclusion reports whether an exclusion contour is configured.
func (c *Catalog) HasExclusion() bool {
	return c.exclusion != nil
}

// InDivisions reports whether (lon, lat) lies inside or on the boundary of
// any of the named divisions. Unknown codes are ignored.
func (c *Catalog) InDivisions(codes []domain.DivisionCode, lon, lat float64) bool {
	pt := geom.Point{X: lon, Y: lat}
	for _, code := range codes {
		p, ok := c.divisions[code]
		if !ok {
			continue
		}
		if pt.Within(p) != geom.Outside {
			return true
		}
	}
	return false
}

// Excluded reports whether (lon, lat) lies inside or on the boundary of the
// exclusion contour. Always false without a contour.
func (c *Catalog) Excluded(lon, lat float64) bool {
	if c.exclusion == nil {
		return false
	}
	pt := geom.Point{X: lon, Y: lat}
	for _, p := range c.exclusion.Polygons() {
		if pt.Within(p) != geom.Outside {
			return true
		}
	}
	return false
}

// Union returns the named divisions as one multipolygon, sorted by code.
func (c *Catalog) Union(codes []domain.DivisionCode) (geom.MultiPolygon, error) {
	sorted := append([]domain.DivisionCode(nil), codes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mp := make(geom.MultiPolygon, 0, len(sorted))
	for _, code := range sorted {
		p, err := c.Polygon(code)
		if err != nil {
			return nil, err
		}
		mp = append(mp, p)
	}
	return mp, nil
}

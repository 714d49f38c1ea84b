// Package stats summarises a bottom field over a set of divisions.
package stats

import (
	"math"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/stat"

	"go.azmp.io/bottom-fields/internal/domain"
)

// earthRadius is the WGS84 equatorial radius in metres.
const earthRadius = 6378137.0

// Depth limits of the shallow-water means, as elevations.
var shallowLimits = [3]float64{-100, -200, -300}

// Thresholds of the area statistics, in the field's unit.
const (
	ColdLimit = 0.0
	CoolLimit = 1.0
	WarmLimit = 2.0
)

// Result holds the statistics of one field over a region. Means are nil when
// no cell qualifies.
type Result struct {
	Cells        int      `json:"cells"`
	Mean         *float64 `json:"mean"`
	Mean100      *float64 `json:"mean_100m"`
	Mean200      *float64 `json:"mean_200m"`
	Mean300      *float64 `json:"mean_300m"`
	AreaColdKm2  float64  `json:"area_le_0_km2"`
	AreaCoolKm2  float64  `json:"area_le_1_km2"`
	AreaWarmKm2  float64  `json:"area_ge_2_km2"`
	PixelAreaKm2 float64  `json:"pixel_area_km2"`
}

// Compute selects the cells of field whose centre lies in region (boundary
// included) and holds data, and summarises them. Areas are cell counts times
// the mean cell area of the grid.
func Compute(field, bathy domain.Field, grid domain.RegularGrid, region geom.Polygonal) Result {
	res := Result{PixelAreaKm2: PixelArea(grid)}
	polys := region.Polygons()

	var values []float64
	var depths [3][]float64
	for i := 0; i < field.NLat; i++ {
		for j := 0; j < field.NLon; j++ {
			v, ok := field.At(i, j)
			if !ok || !contains(polys, grid.Lon[j], grid.Lat[i]) {
				continue
			}
			values = append(values, v)
			z, _ := bathy.At(i, j)
			for n, limit := range shallowLimits {
				if z >= limit {
					depths[n] = append(depths[n], v)
				}
			}
		}
	}

	res.Cells = len(values)
	res.Mean = mean(values)
	res.Mean100 = mean(depths[0])
	res.Mean200 = mean(depths[1])
	res.Mean300 = mean(depths[2])

	var cold, cool, warm int
	for _, v := range values {
		if v <= ColdLimit {
			cold++
		}
		if v <= CoolLimit {
			cool++
		}
		if v >= WarmLimit {
			warm++
		}
	}
	res.AreaColdKm2 = float64(cold) * res.PixelAreaKm2
	res.AreaCoolKm2 = float64(cool) * res.PixelAreaKm2
	res.AreaWarmKm2 = float64(warm) * res.PixelAreaKm2
	return res
}

func contains(polys []geom.Polygon, lon, lat float64) bool {
	pt := geom.Point{X: lon, Y: lat}
	for _, p := range polys {
		if pt.Within(p) != geom.Outside {
			return true
		}
	}
	return false
}

func mean(x []float64) *float64 {
	if len(x) == 0 {
		return nil
	}
	m := stat.Mean(x, nil)
	return &m
}

// PixelArea returns the area in km² of the box spanned by the first and last
// cell centres, divided by the number of cells.
func PixelArea(grid domain.RegularGrid) float64 {
	if grid.Cells() == 0 {
		return 0
	}
	lon0, lon1 := grid.LonLims()
	lat0, lat1 := grid.LatLims()
	ring := []geom.Point{{X: lon0, Y: lat0}, {X: lon0, Y: lat1}, {X: lon1, Y: lat1}, {X: lon1, Y: lat0}}
	return SphericalArea(ring) / 1e6 / float64(grid.Cells())
}

// SphericalArea returns the area in m² enclosed by a lon/lat ring on a sphere
// of the WGS84 equatorial radius. The ring need not be closed.
func SphericalArea(ring []geom.Point) float64 {
	n := len(ring)
	if n > 1 && ring[0].Equals(ring[n-1]) {
		n--
	}
	if n < 3 {
		return 0
	}
	sum := 0.0
	for k := 0; k < n; k++ {
		p1, p2, p3 := ring[k], ring[(k+1)%n], ring[(k+2)%n]
		sum += (rad(p3.X) - rad(p1.X)) * math.Sin(rad(p2.Y))
	}
	return math.Abs(sum * earthRadius * earthRadius / 2)
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

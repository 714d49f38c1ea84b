package gridding

import (
	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

// ShallowLimit is the elevation above which a cell is too shallow to keep.
const ShallowLimit = -10.0

// MaskShallow clears the column of every cell whose elevation is above limit
// or unknown. It returns the number of cells cleared.
func MaskShallow(cube *domain.Cube, bathy domain.Field, limit float64) int {
	n := 0
	for i := 0; i < cube.NLat; i++ {
		for j := 0; j < cube.NLon; j++ {
			z, ok := bathy.At(i, j)
			if ok && z <= limit {
				continue
			}
			cube.ClearColumn(i, j)
			n++
		}
	}
	return n
}

// MaskDivisions applies the seasonal region rule to field in place: spring
// keeps only cells inside the spring divisions, fall drops cells inside the
// exclusion contour, other seasons are left alone. Applying it twice gives the
// same result as once. It returns the number of cells newly cleared.
func MaskDivisions(field domain.Field, grid domain.RegularGrid, season domain.Season, region domain.Region, log logrus.FieldLogger) int {
	var drop func(lon, lat float64) bool
	switch season {
	case domain.SeasonSpring:
		drop = func(lon, lat float64) bool {
			return !region.InDivisions(domain.SpringDivisions, lon, lat)
		}
	case domain.SeasonFall:
		drop = region.Excluded
	default:
		return 0
	}

	n := 0
	for i := 0; i < field.NLat; i++ {
		for j := 0; j < field.NLon; j++ {
			if !field.Valid(i, j) {
				continue
			}
			if drop(grid.Lon[j], grid.Lat[i]) {
				field.Invalidate(i, j)
				n++
			}
		}
	}
	log.WithFields(logrus.Fields{
		"stage":  "divisions",
		"season": season.String(),
		"cells":  n,
	}).Info("Division mask applied")
	return n
}

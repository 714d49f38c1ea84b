// Package gridding turns filtered casts into a gridded near-bottom field. Each
// stage works on the whole grid in memory and mutates the run's Cube in place.
package gridding

import (
	"math"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

// ParseSeasonToken resolves a season token, logging a warning when a
// non-empty token is not recognised and every month is used instead.
func ParseSeasonToken(token string, log logrus.FieldLogger) (domain.Season, bool) {
	season, known := domain.ParseSeason(token)
	if !known && token != "" {
		log.WithField("season", token).Warn("Unknown season, using every month")
	}
	return season, known
}

// FilterCasts returns the casts kept by f, each restricted to the levels
// f.KeepLevel accepts. Casts left without levels are dropped.
func FilterCasts(casts []domain.Cast, f domain.Filter, log logrus.FieldLogger) []domain.Cast {
	if f.Season == domain.SeasonAll {
		log.Warn("No season specified, using every month")
	}

	out := make([]domain.Cast, 0, len(casts))
	for _, c := range casts {
		if !f.Keep(c) {
			continue
		}
		kept := domain.Cast{Lon: c.Lon, Lat: c.Lat, Time: c.Time, Values: make(map[domain.Variable][]float64, len(c.Values))}
		for l, z := range c.Depth {
			if math.IsNaN(z) || !f.KeepLevel(z) {
				continue
			}
			kept.Depth = append(kept.Depth, z)
			for v, series := range c.Values {
				kept.Values[v] = append(kept.Values[v], series[l])
			}
		}
		if len(kept.Depth) == 0 {
			continue
		}
		out = append(out, kept)
	}

	log.WithFields(logrus.Fields{
		"stage": "filter",
		"in":    len(casts),
		"casts": len(out),
	}).Info("Casts filtered")
	return out
}

// MaxDepth returns the deepest level found in casts, or NaN when there is none.
func MaxDepth(casts []domain.Cast) float64 {
	deepest := math.NaN()
	for _, c := range casts {
		for _, z := range c.Depth {
			if math.IsNaN(z) {
				continue
			}
			if math.IsNaN(deepest) || z > deepest {
				deepest = z
			}
		}
	}
	return deepest
}

// BinnedCasts holds one row of bin means per surviving cast. Lon, Lat and Rows
// share their index.
type BinnedCasts struct {
	Bins domain.DepthBins
	Lon  []float64
	Lat  []float64
	Rows [][]float64
}

// Len returns the number of rows.
func (b BinnedCasts) Len() int { return len(b.Rows) }

// BinCasts averages each cast's samples of variable v within every depth bin.
// Bin means rejected by v.Accept are no data, and casts left without any data
// are dropped together with their coordinates.
func BinCasts(casts []domain.Cast, v domain.Variable, bins domain.DepthBins) BinnedCasts {
	out := BinnedCasts{Bins: bins}
	n := bins.Len()
	sums := make([]float64, n)
	counts := make([]int, n)

	for _, c := range casts {
		series, ok := c.Values[v]
		if !ok {
			continue
		}
		for k := range sums {
			sums[k], counts[k] = 0, 0
		}
		for l, z := range c.Depth {
			x := series[l]
			if math.IsNaN(x) {
				continue
			}
			k := bins.Index(z)
			if k < 0 {
				continue
			}
			sums[k] += x
			counts[k]++
		}

		row := make([]float64, n)
		empty := true
		for k := range row {
			row[k] = math.NaN()
			if counts[k] == 0 {
				continue
			}
			mean := sums[k] / float64(counts[k])
			if !v.Accept(mean) {
				continue
			}
			row[k] = mean
			empty = false
		}
		if empty {
			continue
		}
		out.Lon = append(out.Lon, c.Lon)
		out.Lat = append(out.Lat, c.Lat)
		out.Rows = append(out.Rows, row)
	}
	return out
}

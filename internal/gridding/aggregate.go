package gridding

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/interp"

	"go.azmp.io/bottom-fields/internal/domain"
)

// AggregateOptions tunes the spatial aggregation.
type AggregateOptions struct {
	// StrictSinglePoint keeps only the single good bin of a column with one
	// good bin. By default such a column takes the raw averaged vector,
	// including bins that did not count as good.
	StrictSinglePoint bool
	// Workers bounds the number of rows processed concurrently. Zero means
	// GOMAXPROCS.
	Workers int
}

func (o AggregateOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// AggregateStats counts the outcome of an aggregation.
type AggregateStats struct {
	Occupied     int // Cells holding at least one cast.
	Filled       int // Cells whose column received data.
	SinglePoint  int // Cells with exactly one good bin.
	Interpolated int // Cells interpolated vertically.
}

type cellIndex struct{ i, j int }

// Aggregate averages the binned casts falling in each grid cell and fills the
// column between its shallowest and deepest good bins by linear interpolation.
// Nothing is extrapolated beyond that span.
func Aggregate(ctx context.Context, binned BinnedCasts, grid domain.RegularGrid, v domain.Variable, opts AggregateOptions) (*domain.Cube, AggregateStats, error) {
	nDepth := binned.Bins.Len()
	cube := domain.NewCube(grid.NLat(), grid.NLon(), nDepth)

	members := make(map[cellIndex][]int)
	for c := range binned.Rows {
		if i, j, ok := cellOf(grid, binned.Lon[c], binned.Lat[c]); ok {
			members[cellIndex{i, j}] = append(members[cellIndex{i, j}], c)
		}
	}

	rowStats := make([]AggregateStats, grid.NLat())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := 0; i < grid.NLat(); i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st := &rowStats[i]
			mean := make([]float64, nDepth)
			for j := 0; j < grid.NLon(); j++ {
				rows := members[cellIndex{i, j}]
				if len(rows) == 0 {
					continue
				}
				st.Occupied++
				columnMean(binned.Rows, rows, mean)
				fillColumn(cube.Column(i, j), mean, binned.Bins.Centers, v, opts.StrictSinglePoint, st)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, AggregateStats{}, err
	}

	var total AggregateStats
	for _, st := range rowStats {
		total.Occupied += st.Occupied
		total.Filled += st.Filled
		total.SinglePoint += st.SinglePoint
		total.Interpolated += st.Interpolated
	}
	return cube, total, nil
}

// cellOf returns the cell whose half-open box holds (lon, lat).
func cellOf(grid domain.RegularGrid, lon, lat float64) (int, int, bool) {
	if !grid.Covers(lon, lat) {
		return 0, 0, false
	}
	i := nearestIndex(grid.Lat, lat, grid.DC)
	j := nearestIndex(grid.Lon, lon, grid.DC)
	// Rounding may land one cell off at a shared edge.
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			ii, jj := i+di, j+dj
			if ii < 0 || jj < 0 || ii >= grid.NLat() || jj >= grid.NLon() {
				continue
			}
			if grid.InCell(ii, jj, lon, lat) {
				return ii, jj, true
			}
		}
	}
	return 0, 0, false
}

func nearestIndex(axis []float64, v, dc float64) int {
	k := int(math.Floor((v-axis[0])/dc + 0.5))
	return max(0, min(k, len(axis)-1))
}

// columnMean writes into mean the NaN-ignoring average of the selected rows.
func columnMean(all [][]float64, rows []int, mean []float64) {
	for k := range mean {
		sum, n := 0.0, 0
		for _, r := range rows {
			if x := all[r][k]; !math.IsNaN(x) {
				sum += x
				n++
			}
		}
		if n == 0 {
			mean[k] = math.NaN()
			continue
		}
		mean[k] = sum / float64(n)
	}
}

func fillColumn(col, mean, z []float64, v domain.Variable, strict bool, st *AggregateStats) {
	var good []int
	for k, x := range mean {
		if v.CountsAsValid(x) {
			good = append(good, k)
		}
	}

	switch len(good) {
	case 0:
		return
	case 1:
		st.Filled++
		st.SinglePoint++
		if strict {
			col[good[0]] = mean[good[0]]
			return
		}
		copy(col, mean)
		return
	}

	xs := make([]float64, len(good))
	ys := make([]float64, len(good))
	for n, k := range good {
		xs[n], ys[n] = z[k], mean[k]
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return
	}
	for k := good[0]; k <= good[len(good)-1]; k++ {
		col[k] = pl.Predict(z[k])
	}
	st.Filled++
	st.Interpolated++
}

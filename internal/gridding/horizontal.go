package gridding

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.azmp.io/bottom-fields/internal/adapter/interp"
	"go.azmp.io/bottom-fields/internal/domain"
)

// MinControlPoints is the smallest number of cells with data a layer needs to
// be interpolated horizontally.
const MinControlPoints = 4

// HorizontalStats counts the layers handled by InterpolateLayers.
type HorizontalStats struct {
	Interpolated int
	Sparse       int // Fewer than MinControlPoints cells.
	Degenerate   int // Control points admit no triangulation.
}

// InterpolateLayers fills each depth bin of cube by linear interpolation over
// a Delaunay triangulation of the cells holding data. The whole layer is
// overwritten; cells outside the triangulation hull become no data. Layers
// with too few or collinear control points are left untouched.
func InterpolateLayers(ctx context.Context, cube *domain.Cube, grid domain.RegularGrid, workers int, log logrus.FieldLogger) (HorizontalStats, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	outcome := make([]layerOutcome, cube.NDepth)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k := 0; k < cube.NDepth; k++ {
		k := k
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, err := interpolateLayer(cube, grid, k)
			if err != nil {
				return fmt.Errorf("failed to interpolate depth bin %d: %w", k, err)
			}
			outcome[k] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return HorizontalStats{}, err
	}

	var st HorizontalStats
	for k, o := range outcome {
		switch o {
		case layerInterpolated:
			st.Interpolated++
		case layerSparse:
			st.Sparse++
		case layerDegenerate:
			st.Degenerate++
			log.WithField("bin", k).Warn("Control points are collinear, layer left as is")
		}
	}
	log.WithFields(logrus.Fields{
		"stage":        "horizontal",
		"layers":       cube.NDepth,
		"interpolated": st.Interpolated,
		"sparse":       st.Sparse,
	}).Info("Layers interpolated")
	return st, nil
}

type layerOutcome int

const (
	layerSparse layerOutcome = iota
	layerInterpolated
	layerDegenerate
)

func interpolateLayer(cube *domain.Cube, grid domain.RegularGrid, k int) (layerOutcome, error) {
	layer := cube.Layer(k)
	var xs, ys, vs []float64
	for i := 0; i < layer.NLat; i++ {
		for j := 0; j < layer.NLon; j++ {
			if v, ok := layer.At(i, j); ok {
				xs = append(xs, grid.Lon[j])
				ys = append(ys, grid.Lat[i])
				vs = append(vs, v)
			}
		}
	}
	if len(vs) < MinControlPoints {
		return layerSparse, nil
	}

	tri, err := interp.Delaunay(xs, ys)
	if errors.Is(err, interp.ErrDegenerate) {
		return layerDegenerate, nil
	}
	if err != nil {
		return 0, err
	}
	values, err := tri.Grid(vs, grid.Lon, grid.Lat)
	if err != nil {
		return 0, err
	}
	cube.SetLayer(k, domain.Field{NLat: layer.NLat, NLon: layer.NLon, Values: values})
	return layerInterpolated, nil
}

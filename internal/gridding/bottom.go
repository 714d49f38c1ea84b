package gridding

import (
	"math"

	"go.azmp.io/bottom-fields/internal/domain"
)

// Distances, in metres, between the seafloor and the bin used as bottom value.
const (
	NearBottom = 20.0
	FarBottom  = 50.0
)

// BottomQuality counts how each cell's bottom value was obtained.
type BottomQuality struct {
	Near    int // Within NearBottom of the seafloor.
	Far     int // Within FarBottom.
	TooFar  int // Data exist but none close enough.
	Missing int // No data or no bathymetry.
}

// ExtractBottom picks, for each cell, the value of the bin whose centre is
// closest to the seafloor depth -bathy. The first bin wins a tie.
func ExtractBottom(cube *domain.Cube, bins domain.DepthBins, bathy domain.Field) (domain.Field, BottomQuality) {
	out := domain.NewField(cube.NLat, cube.NLon)
	var q BottomQuality

	for i := 0; i < cube.NLat; i++ {
		for j := 0; j < cube.NLon; j++ {
			z, ok := bathy.At(i, j)
			if !ok {
				q.Missing++
				continue
			}
			bottomDepth := -z

			best, bestDist := -1, math.Inf(1)
			for k, centre := range bins.Centers {
				if _, ok := cube.At(i, j, k); !ok {
					continue
				}
				if d := math.Abs(centre - bottomDepth); d < bestDist {
					best, bestDist = k, d
				}
			}

			switch {
			case best < 0:
				q.Missing++
				continue
			case bestDist <= NearBottom:
				q.Near++
			case bestDist <= FarBottom:
				q.Far++
			default:
				q.TooFar++
				continue
			}
			v, _ := cube.At(i, j, best)
			out.Set(i, j, v)
		}
	}
	return out, q
}

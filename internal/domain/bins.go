package domain

import (
	"fmt"
	"math"
)

// DepthBins is the ordered sequence of vertical bins of width DZ. Bin k covers
// the right-closed interval (Centers[k]-DZ/2, Centers[k]+DZ/2].
type DepthBins struct {
	Centers []float64
	DZ      float64
}

// NewDepthBins returns the bins whose lower edges are dz/2, 3dz/2, ... strictly
// below maxDepth. The last edge closes the last bin.
func NewDepthBins(dz, maxDepth float64) (DepthBins, error) {
	if dz <= 0 {
		return DepthBins{}, fmt.Errorf("bin width must be positive, got %g", dz)
	}
	var edges []float64
	for i := 0; dz/2+float64(i)*dz < maxDepth; i++ {
		edges = append(edges, dz/2+float64(i)*dz)
	}
	if len(edges) < 2 {
		return DepthBins{}, fmt.Errorf("no depth bin fits below %g m with width %g m", maxDepth, dz)
	}
	centers := make([]float64, len(edges)-1)
	for k := range centers {
		centers[k] = edges[k] + dz/2
	}
	return DepthBins{Centers: centers, DZ: dz}, nil
}

// Len returns the number of bins.
func (b DepthBins) Len() int { return len(b.Centers) }

// Edges returns the Len()+1 bin edges.
func (b DepthBins) Edges() []float64 {
	if len(b.Centers) == 0 {
		return nil
	}
	edges := make([]float64, len(b.Centers)+1)
	for k, c := range b.Centers {
		edges[k] = c - b.DZ/2
	}
	edges[len(b.Centers)] = b.Centers[len(b.Centers)-1] + b.DZ/2
	return edges
}

// Index returns the bin holding depth z, or -1 when z is outside every bin.
func (b DepthBins) Index(z float64) int {
	if len(b.Centers) == 0 || math.IsNaN(z) {
		return -1
	}
	lo := b.Centers[0] - b.DZ/2
	k := int(math.Ceil((z-lo)/b.DZ)) - 1
	if k < 0 || k >= len(b.Centers) {
		return -1
	}
	// Guard against rounding at the edges: intervals are right-closed.
	if z <= b.Centers[k]-b.DZ/2 {
		k--
	} else if z > b.Centers[k]+b.DZ/2 {
		k++
	}
	if k < 0 || k >= len(b.Centers) {
		return -1
	}
	return k
}

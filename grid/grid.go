// Package grid implements the structured, ghost-padded N-D scalar/vector
// field that the multigrid solver and particle pusher operate on.
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidRank is returned when a Grid is constructed with a rank that
// does not match the supplied descriptor slices.
var ErrInvalidRank = errors.New("grid: trueSize/nGhostLayers length does not match rank")

// ErrTooSmall is returned when a padded axis has fewer than two total
// cells, which would make interior/ghost indexing ambiguous.
var ErrTooSmall = errors.New("grid: size must be >= 2 on any axis carrying ghost layers")

// Grid is a contiguous value array over an N-dimensional block with ghost
// halos, addressed through a cumulative-product stride descriptor.
//
// Rank is the number of array dimensions. For a D-dimensional spatial
// field, Rank = D+1: axis 0 is the leading (component/species) axis and
// axes 1..D are the spatial axes, consistent with how the pusher and
// transfer stencils index sizeProd.
type Grid struct {
	Rank         int
	TrueSize     []int // length Rank
	Size         []int // length Rank
	NGhostLayers []int // length 2*Rank: [0,Rank) lower, [Rank,2Rank) upper
	SizeProd     []int // length Rank+1, SizeProd[0]=1
	Val          []float64
	Slice        []float64 // scratch buffer reused for halo serialization
}

// New allocates a Grid with the given true (interior) extents and ghost
// layer counts. nGhostLayers must have length 2*len(trueSize).
func New(trueSize, nGhostLayers []int) (*Grid, error) {
	rank := len(trueSize)
	if len(nGhostLayers) != 2*rank {
		return nil, ErrInvalidRank
	}

	size := make([]int, rank)
	for d := 0; d < rank; d++ {
		size[d] = trueSize[d] + nGhostLayers[d] + nGhostLayers[rank+d]
		if nGhostLayers[d]+nGhostLayers[rank+d] > 0 && size[d] < 2 {
			return nil, fmt.Errorf("%w: axis %d has size %d", ErrTooSmall, d, size[d])
		}
	}

	sizeProd := cumProd(size)

	g := &Grid{
		Rank:         rank,
		TrueSize:     trueSize,
		Size:         size,
		NGhostLayers: append([]int(nil), nGhostLayers...),
		SizeProd:     sizeProd,
		Val:          make([]float64, sizeProd[rank]),
		Slice:        make([]float64, maxFaceElems(size, rank)),
	}
	return g, nil
}

// cumProd computes the cumulative-product stride descriptor:
// sizeProd[0]=1, sizeProd[d+1]=sizeProd[d]*size[d].
//
// This is the one "assumed primitive" spec.md names (array cumulative
// products) that the module needs internally; it is intentionally a
// four-line stdlib loop rather than a dependency — see DESIGN.md.
func cumProd(size []int) []int {
	rank := len(size)
	sizeProd := make([]int, rank+1)
	sizeProd[0] = 1
	for d := 0; d < rank; d++ {
		sizeProd[d+1] = sizeProd[d] * size[d]
	}
	return sizeProd
}

// maxFaceElems returns the largest (R-1)-face element count across axes,
// used to size the halo-exchange scratch Slice.
func maxFaceElems(size []int, rank int) int {
	max := 1
	for d := 0; d < rank; d++ {
		face := 1
		for dd := 0; dd < rank; dd++ {
			if dd != d {
				face *= size[dd]
			}
		}
		if face > max {
			max = face
		}
	}
	return max
}

// Indexer returns a lightweight stride-arithmetic helper bound to this
// Grid's descriptor arrays (spec.md §9, "Raw index arithmetic -> typed
// strides").
func (g *Grid) Indexer() Indexer {
	return Indexer{sizeProd: g.SizeProd, nGhostLayers: g.NGhostLayers, rank: g.Rank}
}

// InteriorLo returns the first interior index along axis d.
func (g *Grid) InteriorLo(d int) int { return g.NGhostLayers[d] }

// InteriorHi returns one past the last interior index along axis d.
func (g *Grid) InteriorHi(d int) int { return g.NGhostLayers[d] + g.TrueSize[d] }

// Zero sets every element to 0.
func (g *Grid) Zero() {
	for i := range g.Val {
		g.Val[i] = 0
	}
}

// CopyFrom overwrites g's values with src's. The grids must have equal
// length value arrays.
func (g *Grid) CopyFrom(src *Grid) {
	copy(g.Val, src.Val)
}

// AddFrom adds src's values into g elementwise (g.Val[i] += src.Val[i]),
// used by the V-cycle to add a correction residual into phi.
func (g *Grid) AddFrom(src *Grid) {
	for i := range g.Val {
		g.Val[i] += src.Val[i]
	}
}

// Scale multiplies every element by c, used for per-species renormalization
// of E and rho.
func (g *Grid) Scale(c float64) {
	for i := range g.Val {
		g.Val[i] *= c
	}
}

// NewLike allocates a Grid with the same shape as g (a fresh owner, not an
// alias).
func NewLike(g *Grid) *Grid {
	out, err := New(append([]int(nil), g.TrueSize...), append([]int(nil), g.NGhostLayers...))
	if err != nil {
		// g was already constructed successfully with this shape.
		panic(err)
	}
	return out
}

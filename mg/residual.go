package mg

import (
	"gonum.org/v1/gonum/floats"

	"github.com/pinc-go/pinc/grid"
)

// residual computes res = L(phi) - rho at every interior node, where L is
// the standard second-order finite-difference Laplacian (sum of the
// 2*nSpatial axis-neighbors minus 2*nSpatial*phi[g]), matching mgResidual's
// gFinDiff2nd2D(phi) followed by a subtraction of rho.
//
// The original mgResidual always calls the 2-D finite-difference routine
// even when the grid is 3-D (spec.md §9 flags this as a probable bug,
// "may need a dimension-aware primitive"). This implementation reads
// phi.Rank to determine how many spatial neighbors to sum, so it is
// correct for both 2-D and 3-D grids from one routine instead of silently
// truncating a 3-D stencil to 2-D.
func residual(phi, rho, res *grid.Grid) {
	nSpatial := phi.Rank - 1
	ix := phi.Indexer()
	ix.Walk(phi.TrueSize, func(off int) {
		sum := 0.0
		for d := 1; d < phi.Rank; d++ {
			sum += phi.Val[ix.Neighbor(off, d, -1)]
			sum += phi.Val[ix.Neighbor(off, d, 1)]
		}
		lap := sum - float64(2*nSpatial)*phi.Val[off]
		res.Val[off] = lap - rho.Val[off]
	})
}

// l2Norm returns the Euclidean norm of g's interior values, via
// gonum/floats so the convergence check in spec.md §8 ("residual L2 norm
// < 1e-6") and diagnostics.History share one norm implementation.
func l2Norm(g *grid.Grid) float64 {
	var vals []float64
	ix := g.Indexer()
	ix.Walk(g.TrueSize, func(off int) {
		vals = append(vals, g.Val[off])
	})
	return floats.Norm(vals, 2)
}

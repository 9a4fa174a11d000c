package main

import "github.com/pinc-go/pinc/grid"

// computeEField derives the per-axis electric field from the potential
// via a second-order central difference (grid spacing 1, matching the
// h=1 convention mg.residual already assumes). E's leading axis has one
// component per spatial axis of phi, so Accelerate/Interpolate can read
// component d as phi's gradient along spatial axis d+1.
func computeEField(phi *grid.Grid) *grid.Grid {
	nSpatial := phi.Rank - 1

	trueSizeE := append([]int{nSpatial}, phi.TrueSize[1:]...)
	nGhostE := make([]int, 2*phi.Rank)
	for d := 1; d < phi.Rank; d++ {
		nGhostE[d] = phi.NGhostLayers[d]
		nGhostE[phi.Rank+d] = phi.NGhostLayers[phi.Rank+d]
	}

	E, err := grid.New(trueSizeE, nGhostE)
	if err != nil {
		panic(err) // phi's own shape was already validated at this rank
	}

	ixPhi := phi.Indexer()
	ixE := E.Indexer()
	idxE := make([]int, phi.Rank)
	for axis := 1; axis < phi.Rank; axis++ {
		component := axis - 1
		ixPhi.WalkIndexed(phi.TrueSize, func(idx []int, off int) {
			copy(idxE, idx)
			idxE[0] = E.InteriorLo(0) + component
			plus := ixPhi.Neighbor(off, axis, 1)
			minus := ixPhi.Neighbor(off, axis, -1)
			E.Val[ixE.Offset(idxE)] = -(phi.Val[plus] - phi.Val[minus]) / 2.0
		})
	}
	return E
}

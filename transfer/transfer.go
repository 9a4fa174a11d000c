// Package transfer implements the multigrid inter-level operators (C4):
// half-weight restriction (fine -> coarse) and bilinear/trilinear
// prolongation (coarse -> fine), grounded in
// original_source/src/multigrid.c's halfWeightRestrict2D/3D and
// bilinearProlong2D/trilinearProlong3D.
package transfer

import (
	"fmt"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/halo"
	"github.com/pinc-go/pinc/transport"
)

// checkLevels validates that coarse is exactly the per-level halving of
// fine along every spatial axis (axis 0, the component axis, must match
// exactly), per the mgAllocSubGrids resolution in DESIGN.md.
func checkLevels(fine, coarse *grid.Grid) error {
	if fine.Rank != coarse.Rank {
		return fmt.Errorf("transfer: fine rank %d != coarse rank %d", fine.Rank, coarse.Rank)
	}
	if fine.TrueSize[0] != coarse.TrueSize[0] {
		return fmt.Errorf("transfer: component axis size mismatch: fine=%d coarse=%d", fine.TrueSize[0], coarse.TrueSize[0])
	}
	for d := 1; d < fine.Rank; d++ {
		if fine.TrueSize[d] != 2*coarse.TrueSize[d] {
			return fmt.Errorf("transfer: axis %d: fine TrueSize %d is not 2x coarse TrueSize %d", d, fine.TrueSize[d], coarse.TrueSize[d])
		}
	}
	return nil
}

// fineIndex maps a coarse interior subscript to the corresponding fine
// subscript: the component axis (0) is carried through unchanged, every
// spatial axis is doubled relative to the interior origin.
func fineIndex(fine, coarse *grid.Grid, cidx []int) []int {
	fidx := make([]int, fine.Rank)
	fidx[0] = fine.InteriorLo(0) + (cidx[0] - coarse.InteriorLo(0))
	for d := 1; d < fine.Rank; d++ {
		fidx[d] = fine.InteriorLo(d) + 2*(cidx[d]-coarse.InteriorLo(d))
	}
	return fidx
}

// Restrict computes coarse = halfWeight(fine): each coarse node takes
// half its value from the coincident fine node and splits the remaining
// half evenly across its 2*nSpatial face neighbors. This reduces to the
// original's 0.125-per-edge-neighbor 2D stencil and 1/12-per-face-neighbor
// 3D stencil, generalized to any spatial rank since nothing in spec.md §9
// flags restriction as needing the 2D/3D hand-unrolling GaussSeidel keeps.
//
// fine's ghost layers must already be current (the caller is expected to
// have exchanged halos after the last smoothing pass); Restrict refreshes
// coarse's ghost layers before returning.
func Restrict(conn transport.Conn, fine, coarse *grid.Grid) error {
	if err := checkLevels(fine, coarse); err != nil {
		return err
	}
	nSpatial := fine.Rank - 1
	fix := fine.Indexer()
	cix := coarse.Indexer()
	edgeWeight := 0.5 / float64(2*nSpatial)

	cix.WalkIndexed(coarse.TrueSize, func(cidx []int, coff int) {
		fidx := fineIndex(fine, coarse, cidx)
		foff := fix.Offset(fidx)
		sum := 0.0
		for d := 1; d < fine.Rank; d++ {
			sum += fine.Val[fix.Neighbor(foff, d, -1)]
			sum += fine.Val[fix.Neighbor(foff, d, 1)]
		}
		coarse.Val[coff] = 0.5*fine.Val[foff] + edgeWeight*sum
	})
	return halo.Exchange(conn, coarse)
}

// Prolong adds the bilinear/trilinear interpolation of coarse onto fine
// (fine += prolong(coarse)), per DESIGN.md's accumulate-convention
// resolution of the original's 2D-accumulates/3D-assigns inconsistency.
//
// The correction is built in three phases mirroring the original's
// per-axis passes: inject coarse values at coincident fine nodes, then
// sweep each spatial axis in turn, filling the in-between fine nodes by
// averaging their two now-filled neighbors along that axis, refreshing
// the correction's ghost layers before each axis sweep as the original does.
func Prolong(conn transport.Conn, coarse, fine *grid.Grid) error {
	if err := checkLevels(fine, coarse); err != nil {
		return err
	}
	correction := grid.NewLike(fine)
	fix := fine.Indexer()
	cix := coarse.Indexer()

	cix.WalkIndexed(coarse.TrueSize, func(cidx []int, coff int) {
		fidx := fineIndex(fine, coarse, cidx)
		correction.Val[fix.Offset(fidx)] = coarse.Val[coff]
	})

	for d := 1; d < fine.Rank; d++ {
		if err := halo.Exchange(conn, correction); err != nil {
			return err
		}
		fix.WalkIndexed(fine.TrueSize, func(fidx []int, foff int) {
			rel := fidx[d] - fine.InteriorLo(d)
			if rel%2 != 1 {
				return
			}
			lo := fix.Neighbor(foff, d, -1)
			hi := fix.Neighbor(foff, d, 1)
			correction.Val[foff] = 0.5 * (correction.Val[lo] + correction.Val[hi])
		})
	}

	fine.AddFrom(correction)
	return halo.Exchange(conn, fine)
}

package grid

// Indexer is the typed stride-arithmetic helper that replaces raw
// sizeProd offset computation scattered through callers (spec.md §9,
// "Raw index arithmetic -> typed strides").
//
// An Indexer is a small value type: it holds only slice headers borrowed
// from the owning Grid, so it is cheap to pass by value and safe to share
// across goroutines as long as the underlying Grid's descriptor slices
// are not reallocated concurrently.
type Indexer struct {
	sizeProd     []int
	nGhostLayers []int
	rank         int
}

// Stride returns the linear-offset increment of moving by one cell along
// axis d.
func (ix Indexer) Stride(d int) int { return ix.sizeProd[d] }

// GhostLow returns the number of ghost layers below the interior along
// axis d.
func (ix Indexer) GhostLow(d int) int { return ix.nGhostLayers[d] }

// GhostHigh returns the number of ghost layers above the interior along
// axis d.
func (ix Indexer) GhostHigh(d int) int { return ix.nGhostLayers[ix.rank+d] }

// GhostTotal returns GhostLow(d)+GhostHigh(d), the edge-increment term the
// original multigrid code folds into its row-skip bookkeeping.
func (ix Indexer) GhostTotal(d int) int { return ix.GhostLow(d) + ix.GhostHigh(d) }

// Offset returns the flat index corresponding to the per-axis subscript
// idx (length rank).
func (ix Indexer) Offset(idx []int) int {
	off := 0
	for d := 0; d < ix.rank; d++ {
		off += idx[d] * ix.sizeProd[d]
	}
	return off
}

// Neighbor returns the flat offset obtained by shifting g by delta cells
// along axis d. delta may be negative.
func (ix Indexer) Neighbor(g, d, delta int) int {
	return g + delta*ix.sizeProd[d]
}

// EdgeIncrement returns the offset to add when a nested scan loop rolls
// over from the last interior column of axis `inner` back to the first
// column of the next row along axis `outer`, skipping both the ghost
// padding of `inner` and the single step along `outer`.
//
// This mirrors the kEdgeInc/lEdgeInc terms in the original C smoother and
// transfer loops: EdgeIncrement(inner, outer) = GhostTotal(inner) +
// Stride(outer).
func (ix Indexer) EdgeIncrement(inner, outer int) int {
	return ix.GhostTotal(inner) + ix.Stride(outer)
}

// Walk calls fn once for every interior flat offset of a grid whose
// TrueSize/NGhostLayers produced this Indexer, visiting axis rank-1
// fastest. trueSize must have length rank.
func (ix Indexer) Walk(trueSize []int, fn func(off int)) {
	idx := make([]int, ix.rank)
	for d := 0; d < ix.rank; d++ {
		idx[d] = ix.GhostLow(d)
	}
	ix.walk(trueSize, idx, 0, fn)
}

func (ix Indexer) walk(trueSize []int, idx []int, d int, fn func(off int)) {
	if d == ix.rank {
		fn(ix.Offset(idx))
		return
	}
	lo := ix.GhostLow(d)
	for i := 0; i < trueSize[d]; i++ {
		idx[d] = lo + i
		ix.walk(trueSize, idx, d+1, fn)
	}
}

// WalkIndexed is Walk but also passes the per-axis subscript to fn,
// letting callers (e.g. red-black parity classification) compute
// properties of the position without re-deriving indices from a flat
// offset. The idx slice passed to fn is reused across calls; callers
// must not retain it past the callback.
func (ix Indexer) WalkIndexed(trueSize []int, fn func(idx []int, off int)) {
	idx := make([]int, ix.rank)
	for d := 0; d < ix.rank; d++ {
		idx[d] = ix.GhostLow(d)
	}
	ix.walkIndexed(trueSize, idx, 0, fn)
}

func (ix Indexer) walkIndexed(trueSize []int, idx []int, d int, fn func(idx []int, off int)) {
	if d == ix.rank {
		fn(idx, ix.Offset(idx))
		return
	}
	lo := ix.GhostLow(d)
	for i := 0; i < trueSize[d]; i++ {
		idx[d] = lo + i
		ix.walkIndexed(trueSize, idx, d+1, fn)
	}
}

// WalkFace calls fn once for every interior flat offset lying on the face
// of axis d at the given side (0 = low boundary, 1 = high boundary),
// iterating the other rank-1 axes over their full interior extent. Halo
// exchange does not use it: its faces also cover ghost cells (see
// halo.boundaryFace).
func (ix Indexer) WalkFace(trueSize []int, d, side int, fn func(off int)) {
	idx := make([]int, ix.rank)
	for dd := 0; dd < ix.rank; dd++ {
		idx[dd] = ix.GhostLow(dd)
	}
	if side == 0 {
		idx[d] = ix.GhostLow(d)
	} else {
		idx[d] = ix.GhostLow(d) + trueSize[d] - 1
	}
	ix.walkFace(trueSize, idx, 0, d, fn)
}

func (ix Indexer) walkFace(trueSize []int, idx []int, dd, skip int, fn func(off int)) {
	if dd == ix.rank {
		fn(ix.Offset(idx))
		return
	}
	if dd == skip {
		ix.walkFace(trueSize, idx, dd+1, skip, fn)
		return
	}
	lo := ix.GhostLow(dd)
	for i := 0; i < trueSize[dd]; i++ {
		idx[dd] = lo + i
		ix.walkFace(trueSize, idx, dd+1, skip, fn)
	}
}

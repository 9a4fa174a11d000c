// Package halo implements ghost-layer exchange between neighboring
// subdomains over a transport.Conn, per spec.md §4.1.
package halo

import (
	"encoding/binary"
	"math"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/topology"
	"github.com/pinc-go/pinc/transport"
)

// Exchange refreshes every ghost layer of g by swapping boundary data
// with the topological neighbors reachable through conn, one spatial
// axis at a time. Axis 0 (the leading component/species axis) is never
// exchanged — only axes 1..g.Rank-1 correspond to Cartesian subdomain
// axes, per the Rank = D+1 convention in SPEC_FULL §3.
//
// Exchange is intentionally ordered axis by axis (not all axes at once):
// corner/edge ghost cells of a multi-dimensional halo are filled
// correctly only if lower axes are already exchanged before higher ones
// run, matching the original multigrid code's per-axis halo calls between
// red and black sub-passes.
func Exchange(conn transport.Conn, g *grid.Grid) error {
	ix := g.Indexer()
	info := conn.Topology()
	for d := 1; d < g.Rank; d++ {
		c := d - 1 // Cartesian axis index
		if ix.GhostLow(d) == 0 && ix.GhostHigh(d) == 0 {
			continue
		}
		if err := exchangeAxis(conn, info, g, ix, d, c); err != nil {
			return err
		}
	}
	return nil
}

func exchangeAxis(conn transport.Conn, info topology.Info, g *grid.Grid, ix grid.Indexer, d, c int) error {
	nLow, nHigh := ix.GhostLow(d), ix.GhostHigh(d)
	lowRank := info.NeighborToRank(shiftNeighbor(info.NDims, c, -1))
	highRank := info.NeighborToRank(shiftNeighbor(info.NDims, c, +1))

	const tagForward = 0
	const tagBackward = 1

	// Forward pass: send this rank's high-boundary interior layer to its
	// high neighbor; receive the low neighbor's high-boundary layer into
	// our own low ghost layer.
	if err := swap(conn, g, ix, d, highSendOffsets(g, ix, d, nHigh), highRank, lowGhostOffsets(g, ix, d, nLow), lowRank, tagForward); err != nil {
		return err
	}
	// Backward pass: send this rank's low-boundary interior layer to its
	// low neighbor; receive the high neighbor's low-boundary layer into
	// our own high ghost layer.
	if err := swap(conn, g, ix, d, lowSendOffsets(g, ix, d, nLow), lowRank, highGhostOffsets(g, ix, d, nHigh), highRank, tagBackward); err != nil {
		return err
	}
	return nil
}

// swap sends the cells at sendOffsets to dst and receives into the cells
// at recvOffsets from src, both tagged with tag. It is skipped (treated
// as a local copy) when dst/src equal the calling rank's own rank, which
// happens for single-subdomain-per-axis periodic setups.
func swap(conn transport.Conn, g *grid.Grid, ix grid.Indexer, d int, sendOffsets []int, dst int, recvOffsets []int, src int, tag int) error {
	self := conn.Rank()
	sendBuf := gather(g, sendOffsets)

	if dst == self && src == self {
		scatter(g, recvOffsets, sendBuf)
		return nil
	}

	recvBuf := make([]byte, len(recvOffsets)*8)
	recvReq := conn.IRecv(src, tag, recvBuf)
	sendReq := conn.ISend(dst, tag, sendBuf)

	if err := sendReq.Wait(); err != nil {
		return err
	}
	if err := recvReq.Wait(); err != nil {
		return err
	}
	scatter(g, recvOffsets, recvBuf)
	return nil
}

func gather(g *grid.Grid, offsets []int) []byte {
	buf := make([]byte, len(offsets)*8)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(g.Val[off]))
	}
	return buf
}

func scatter(g *grid.Grid, offsets []int, buf []byte) {
	for i, off := range offsets {
		g.Val[off] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
}

// shiftNeighbor builds the base-3 neighbor index for a unit shift of
// direction dir (-1 or +1) along Cartesian axis c, every other axis at
// "self" (digit 1). Digit order matches topology.NeighborToRank: axis 0
// in the least-significant digit.
func shiftNeighbor(nDims, c, dir int) int {
	n := 0
	mul := 1
	for d := 0; d < nDims; d++ {
		digit := 1
		if d == c {
			digit = 1 + dir
		}
		n += digit * mul
		mul *= 3
	}
	return n
}

// highSendOffsets returns the flat offsets of the nHigh interior cells
// adjacent to the high boundary along axis d (the data sent to the high
// neighbor).
func highSendOffsets(g *grid.Grid, ix grid.Indexer, d, nHigh int) []int {
	var out []int
	hi := g.InteriorHi(d)
	for layer := 0; layer < nHigh; layer++ {
		idx := hi - nHigh + layer
		out = append(out, boundaryFace(g, ix, d, idx)...)
	}
	return out
}

// lowSendOffsets returns the flat offsets of the nLow interior cells
// adjacent to the low boundary along axis d.
func lowSendOffsets(g *grid.Grid, ix grid.Indexer, d, nLow int) []int {
	var out []int
	lo := g.InteriorLo(d)
	for layer := 0; layer < nLow; layer++ {
		idx := lo + layer
		out = append(out, boundaryFace(g, ix, d, idx)...)
	}
	return out
}

// lowGhostOffsets returns the flat offsets of the nLow ghost cells below
// the interior along axis d, in the same per-layer order lowSendOffsets
// uses on the sending side so a received buffer scatters into matching
// cells.
func lowGhostOffsets(g *grid.Grid, ix grid.Indexer, d, nLow int) []int {
	var out []int
	for layer := 0; layer < nLow; layer++ {
		idx := layer
		out = append(out, boundaryFace(g, ix, d, idx)...)
	}
	return out
}

// highGhostOffsets returns the flat offsets of the nHigh ghost cells
// above the interior along axis d.
func highGhostOffsets(g *grid.Grid, ix grid.Indexer, d, nHigh int) []int {
	var out []int
	base := ix.GhostLow(d) + g.TrueSize[d]
	for layer := 0; layer < nHigh; layer++ {
		idx := base + layer
		out = append(out, boundaryFace(g, ix, d, idx)...)
	}
	return out
}

// boundaryFace returns every flat offset with axis d fixed at idx, axes
// 0 and 1..Rank-1 (other than d) ranging over their full padded extent so
// edge and corner ghost cells are exchanged along with face cells.
func boundaryFace(g *grid.Grid, ix grid.Indexer, d, idx int) []int {
	var out []int
	sub := make([]int, g.Rank)
	sub[d] = idx
	var rec func(axis int)
	rec = func(axis int) {
		if axis == g.Rank {
			out = append(out, ix.Offset(sub))
			return
		}
		if axis == d {
			rec(axis + 1)
			return
		}
		for i := 0; i < g.Size[axis]; i++ {
			sub[axis] = i
			rec(axis + 1)
		}
	}
	rec(0)
	return out
}

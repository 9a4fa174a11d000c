// Package migrate implements the particle migration protocol (C9):
// extract particles that have crossed into a neighboring subdomain,
// exchange per-species counts, exchange the particle bodies with
// periodic-shift position correction, and import them into the
// receiving subdomain's population.
//
// Grounded directly in original_source/src/pusher.c's
// puExtractEmigrantsND / exchangeNMigrants / exchangeMigrants /
// shiftImmigrants / importParticles, and in topology's neighbor-index
// algebra for the reciprocal-tag discipline spec.md §4.9 requires.
package migrate

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pinc-go/pinc/population"
	"github.com/pinc-go/pinc/topology"
	"github.com/pinc-go/pinc/transport"
)

// Migrator owns the per-rank state needed to run one migration pass:
// the transport connection, this rank's topology, and the trueSize used
// for periodic-shift correction on imported particle positions.
type Migrator struct {
	Conn     transport.Conn
	Info     topology.Info
	TrueSize []int // length NDims, this subdomain's own interior extent per axis
}

// neighborIndex builds the base-3 neighbor index for a particle at pos,
// most-significant digit first (axis NDims-1 contributes the highest
// power of 3), matching puExtractEmigrantsND's
// `for(d=nDims-1;d>=0;d--){ne*=3; ne+=1-(pos[d]<lo)+(pos[d]>=hi);}`.
func (m *Migrator) neighborIndex(pos []float64) int {
	ne := 0
	for d := m.Info.NDims - 1; d >= 0; d-- {
		ne *= 3
		digit := 1
		if pos[d] < 0 {
			digit = 0
		} else if pos[d] >= float64(m.TrueSize[d]) {
			digit = 2
		}
		ne += digit
	}
	return ne
}

type emigrant struct {
	pos, vel []float64
}

// Run performs one full migration pass over pop, removing emigrants and
// importing immigrants in place.
func (m *Migrator) Run(pop *population.Population) error {
	nNeighbors := m.Info.NumNeighbors()
	self := topology.SelfNeighbor(m.Info.NDims)

	// Phase 1: extract. Per neighbor, per species, collect the emigrant
	// particles and remove them from pop via swap-with-last.
	counts := make([][]int, nNeighbors) // [neighbor][species] = count
	for n := 0; n < nNeighbors; n++ {
		counts[n] = make([]int, pop.NSpecies)
	}
	perNeighborPerSpecies := make([][][]emigrant, nNeighbors)
	for n := 0; n < nNeighbors; n++ {
		perNeighborPerSpecies[n] = make([][]emigrant, pop.NSpecies)
	}

	for s := 0; s < pop.NSpecies; s++ {
		p := pop.IStart[s]
		for p < pop.IStop[s] {
			pos := pop.PosAt(p)
			ne := m.neighborIndex(pos)
			if ne == self {
				p++
				continue
			}
			e := emigrant{
				pos: append([]float64(nil), pos...),
				vel: append([]float64(nil), pop.VelAt(p)...),
			}
			perNeighborPerSpecies[ne][s] = append(perNeighborPerSpecies[ne][s], e)
			counts[ne][s]++
			if err := pop.RemoveSwapLast(s, p); err != nil {
				return err
			}
			// do not advance p: the swapped-in particle at index p must
			// itself be classified.
		}
	}

	// Phase 2: exchange per-species counts with every real neighbor.
	recvCounts := make([][]int, nNeighbors)
	sendReqs := make([]transport.Request, 0, nNeighbors)
	recvReqs := make([]transport.Request, 0, nNeighbors)
	recvBufs := make([][]byte, nNeighbors)
	for n := 0; n < nNeighbors; n++ {
		if n == self {
			continue
		}
		dst := m.Info.NeighborToRank(n)
		tag := topology.NeighborToReciprocal(m.Info.NDims, n)
		sendReqs = append(sendReqs, m.Conn.ISend(dst, tag, encodeInts(counts[n])))

		recvBufs[n] = make([]byte, pop.NSpecies*8)
		recvReqs = append(recvReqs, m.Conn.IRecv(dst, n, recvBufs[n]))
	}
	for _, r := range sendReqs {
		if err := r.Wait(); err != nil {
			return fmt.Errorf("migrate: count send: %w", err)
		}
	}
	ri := 0
	for n := 0; n < nNeighbors; n++ {
		if n == self {
			continue
		}
		if err := recvReqs[ri].Wait(); err != nil {
			return fmt.Errorf("migrate: count recv: %w", err)
		}
		recvCounts[n] = decodeInts(recvBufs[n], pop.NSpecies)
		ri++
	}

	// Phase 3: exchange the emigrant bodies themselves.
	bodySendReqs := make([]transport.Request, 0, nNeighbors)
	for n := 0; n < nNeighbors; n++ {
		if n == self {
			continue
		}
		total := 0
		for _, c := range counts[n] {
			total += c
		}
		if total == 0 {
			continue
		}
		dst := m.Info.NeighborToRank(n)
		tag := topology.NeighborToReciprocal(m.Info.NDims, n)
		buf := encodeBodies(perNeighborPerSpecies[n], pop.NDims)
		bodySendReqs = append(bodySendReqs, m.Conn.ISend(dst, tag, buf))
	}

	// Receive bodies with an any-source, any-tag wait per expected
	// message (exchangeMigrants' N-1 blocking MPI_ANY_SOURCE receives):
	// the tag on each arrival, not the sender rank, tells us which
	// neighbor direction it came from (spec.md §4.9).
	maxBodyBytes := 0
	for n := 0; n < nNeighbors; n++ {
		if n == self {
			continue
		}
		total := 0
		for _, c := range recvCounts[n] {
			total += c
		}
		if total*2*pop.NDims*8 > maxBodyBytes {
			maxBodyBytes = total * 2 * pop.NDims * 8
		}
	}
	for n := 0; n < nNeighbors; n++ {
		if n == self {
			continue
		}
		total := 0
		for _, c := range recvCounts[n] {
			total += c
		}
		if total == 0 {
			continue
		}
		buf := make([]byte, maxBodyBytes)
		req := m.Conn.IRecvAny(buf)
		if err := req.Wait(); err != nil {
			return fmt.Errorf("migrate: body recv: %w", err)
		}
		from := req.Tag()
		if err := m.importBodies(pop, from, recvCounts[from], buf); err != nil {
			return err
		}
	}
	for _, r := range bodySendReqs {
		if err := r.Wait(); err != nil {
			return fmt.Errorf("migrate: body send: %w", err)
		}
	}
	return nil
}

// importBodies decodes the per-species particle bodies received from
// neighbor n, applies shiftImmigrants' periodic position correction, and
// appends each particle into pop.
func (m *Migrator) importBodies(pop *population.Population, n int, speciesCounts []int, buf []byte) error {
	shift := m.positionShift(n)
	off := 0
	for s := 0; s < pop.NSpecies; s++ {
		for i := 0; i < speciesCounts[s]; i++ {
			pos := make([]float64, pop.NDims)
			vel := make([]float64, pop.NDims)
			for d := 0; d < pop.NDims; d++ {
				pos[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
				off += 8
			}
			for d := 0; d < pop.NDims; d++ {
				vel[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
				off += 8
			}
			for d := 0; d < pop.NDims; d++ {
				pos[d] += shift[d]
			}
			if _, err := pop.Append(s, pos, vel); err != nil {
				return err
			}
		}
	}
	return nil
}

// positionShift decodes neighbor index n (least-significant digit first,
// matching shiftImmigrants' `n=ne%3-1; ne/=3;`) into the per-axis
// position correction a particle crossing from that neighbor needs. n is
// this rank's own neighbor index pointing at the sender (see Run's
// reciprocal-tag discussion), so digit 0 means the sender's subdomain
// sits just below ours along axis d: the sender's local coordinate must
// have TrueSize[d] subtracted to land in our own local frame, and digit
// 2 (sender above us) the opposite.
func (m *Migrator) positionShift(neighbor int) []float64 {
	shift := make([]float64, m.Info.NDims)
	ne := neighbor
	for d := 0; d < m.Info.NDims; d++ {
		digit := ne % 3
		ne /= 3
		switch digit {
		case 0:
			shift[d] = -float64(m.TrueSize[d])
		case 2:
			shift[d] = float64(m.TrueSize[d])
		}
	}
	return shift
}

func encodeInts(vals []int) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func decodeInts(buf []byte, n int) []int {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = int(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

// encodeBodies flattens perSpecies[species][] emigrants into
// pos..vel-interleaved-per-particle bytes, species in order 0..N-1 so
// the receiver can re-split using the count vector it already has.
func encodeBodies(perSpecies [][]emigrant, nDims int) []byte {
	total := 0
	for _, es := range perSpecies {
		total += len(es)
	}
	buf := make([]byte, total*2*nDims*8)
	off := 0
	for _, es := range perSpecies {
		for _, e := range es {
			for d := 0; d < nDims; d++ {
				binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(e.pos[d]))
				off += 8
			}
			for d := 0; d < nDims; d++ {
				binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(e.vel[d]))
				off += 8
			}
		}
	}
	return buf
}

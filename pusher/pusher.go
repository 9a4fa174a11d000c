// Package pusher implements the particle-in-cell field interpolation and
// motion update (C8): trilinear field-to-particle acceleration,
// trilinear particle-to-field charge deposition, ballistic motion, and
// periodic boundary wrap. Grounded in original_source/src/pusher.c's
// puAcc3D1/puDistr3D1/puInterp3D1/puMove/puBndPeriodic.
package pusher

import (
	"fmt"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/population"
)

// cornerOffsets returns the flat offsets (at component axis 0) and
// trilinear weights of the 2^nSpatial grid corners surrounding localPos,
// a position expressed in grid-index units relative to this subdomain's
// own interior origin (axis 0 excluded: localPos has length g.Rank-1).
//
// This is the direct generalization of puInterp3D1's eight-corner stencil
// (p, pj, pk, pjk, pl, pjl, pkl, pjkl) to any spatial rank: each corner is
// one of the 2^nSpatial combinations of "floor" / "floor+1" per axis.
func cornerOffsets(g *grid.Grid, localPos []float64) ([]int, []float64) {
	nSpatial := g.Rank - 1
	ix := g.Indexer()

	base := make([]int, g.Rank)
	base[0] = g.InteriorLo(0)
	frac := make([]float64, nSpatial)
	for d := 0; d < nSpatial; d++ {
		cell := int(localPos[d])
		frac[d] = localPos[d] - float64(cell)
		base[d+1] = g.InteriorLo(d+1) + cell
	}
	baseOff := ix.Offset(base)

	nCorners := 1 << uint(nSpatial)
	offsets := make([]int, nCorners)
	weights := make([]float64, nCorners)
	for corner := 0; corner < nCorners; corner++ {
		off := baseOff
		w := 1.0
		for d := 0; d < nSpatial; d++ {
			if corner&(1<<uint(d)) != 0 {
				off = ix.Neighbor(off, d+1, 1)
				w *= frac[d]
			} else {
				w *= 1 - frac[d]
			}
		}
		offsets[corner] = off
		weights[corner] = w
	}
	return offsets, weights
}

// Interpolate returns the trilinear interpolation of field component
// `component` (an index into axis 0) at localPos.
func Interpolate(field *grid.Grid, component int, localPos []float64) float64 {
	offsets, weights := cornerOffsets(field, localPos)
	stride0 := field.Indexer().Stride(0)
	shift := component * stride0
	sum := 0.0
	for i, off := range offsets {
		sum += weights[i] * field.Val[off+shift]
	}
	return sum
}

// Deposit adds amount*weight to each of the 2^nSpatial corners
// surrounding localPos in field component `component`, the inverse
// operation of Interpolate (field-to-particle vs particle-to-field).
func Deposit(field *grid.Grid, component int, localPos []float64, amount float64) {
	offsets, weights := cornerOffsets(field, localPos)
	stride0 := field.Indexer().Stride(0)
	shift := component * stride0
	for i, off := range offsets {
		field.Val[off+shift] += weights[i] * amount
	}
}

// Accelerate interpolates E at every live particle of species s and adds
// renorm*E*dt to its velocity. renorm folds in the species' charge-to-mass
// ratio (puAcc3D1's renormE[s]); unlike the original, which rescales the
// shared E grid in place per species and relies on species being visited
// in a fixed order, this computes renorm*interpolation per particle —
// the same linear result without a shared mutable E.
func Accelerate(pop *population.Population, s int, E *grid.Grid, renorm, dt float64) error {
	nSpatial := E.Rank - 1
	if nSpatial != pop.NDims {
		return fmt.Errorf("pusher: E has %d spatial axes, population has %d dims", nSpatial, pop.NDims)
	}
	for p := pop.IStart[s]; p < pop.IStop[s]; p++ {
		pos := pop.PosAt(p)
		vel := pop.VelAt(p)
		for d := 0; d < pop.NDims; d++ {
			vel[d] += renorm * dt * Interpolate(E, d, pos)
		}
	}
	return nil
}

// Distribute deposits every live particle of species s into rho with
// weight renorm (puDistr3D1's renormRho[s]). Callers zero rho once before
// looping over all species, consistent with spec.md §4.3's combined
// deposition note.
func Distribute(pop *population.Population, s int, rho *grid.Grid, renorm float64) error {
	if rho.Rank-1 != pop.NDims {
		return fmt.Errorf("pusher: rho has %d spatial axes, population has %d dims", rho.Rank-1, pop.NDims)
	}
	for p := pop.IStart[s]; p < pop.IStop[s]; p++ {
		Deposit(rho, 0, pop.PosAt(p), renorm)
	}
	return nil
}

// Move advances every live particle's position by vel (puMove: a plain
// explicit Euler step, pos += vel, scaled by dt).
func Move(pop *population.Population, dt float64) {
	for s := 0; s < pop.NSpecies; s++ {
		for p := pop.IStart[s]; p < pop.IStop[s]; p++ {
			pos := pop.PosAt(p)
			vel := pop.VelAt(p)
			for d := 0; d < pop.NDims; d++ {
				pos[d] += vel[d] * dt
			}
		}
	}
}

// WrapPeriodic folds every live particle's position back into
// [0, trueSize[d]) along every axis where periodic[d] is true, matching
// puBndPeriodic's use of the subdomain's own trueSize as the wrap period.
func WrapPeriodic(pop *population.Population, trueSize []int, periodic []bool) {
	for s := 0; s < pop.NSpecies; s++ {
		for p := pop.IStart[s]; p < pop.IStop[s]; p++ {
			pos := pop.PosAt(p)
			for d := 0; d < pop.NDims; d++ {
				if !periodic[d] {
					continue
				}
				size := float64(trueSize[d])
				for pos[d] < 0 {
					pos[d] += size
				}
				for pos[d] >= size {
					pos[d] -= size
				}
			}
		}
	}
}

// Package population implements the structure-of-arrays particle storage
// (C7): flat position/velocity arrays partitioned into fixed per-species
// blocks, each tracked by a live-count interval and compacted by
// swap-with-last removal, per spec.md §3/§4.7/§4.9.
package population

import "errors"

// ErrBufferOverflow is returned when a species' live particle count would
// exceed its reserved block size. spec.md §7 requires this be detected
// and returned, not left as undefined behavior.
var ErrBufferOverflow = errors.New("population: species block is full")

// ErrOutOfRange is returned when an operation is given a particle index
// outside the addressed species' live interval.
var ErrOutOfRange = errors.New("population: particle index out of species range")

// Population holds every species' particles in one shared Pos/Vel array.
// Species s occupies the fixed block [s*BlockSize, (s+1)*BlockSize) of
// particle slots; IStart/IStop narrow that to the live sub-range
// [IStart[s], IStop[s]) spec.md names directly.
type Population struct {
	NDims     int
	NSpecies  int
	BlockSize int
	Pos       []float64 // length NSpecies*BlockSize*NDims
	Vel       []float64 // length NSpecies*BlockSize*NDims
	IStart    []int     // length NSpecies, fixed at construction
	IStop     []int     // length NSpecies, one past the last live particle
}

// New allocates a Population with nSpecies fixed-size blocks of
// blockSize particles each, all species starting empty.
func New(nDims, nSpecies, blockSize int) *Population {
	p := &Population{
		NDims:     nDims,
		NSpecies:  nSpecies,
		BlockSize: blockSize,
		Pos:       make([]float64, nSpecies*blockSize*nDims),
		Vel:       make([]float64, nSpecies*blockSize*nDims),
		IStart:    make([]int, nSpecies),
		IStop:     make([]int, nSpecies),
	}
	for s := 0; s < nSpecies; s++ {
		p.IStart[s] = s * blockSize
		p.IStop[s] = p.IStart[s]
	}
	return p
}

// Count returns the number of live particles of species s.
func (p *Population) Count(s int) int { return p.IStop[s] - p.IStart[s] }

// PosAt returns a view onto particle p's NDims-length position.
func (p *Population) PosAt(particle int) []float64 {
	o := particle * p.NDims
	return p.Pos[o : o+p.NDims]
}

// VelAt returns a view onto particle p's NDims-length velocity.
func (p *Population) VelAt(particle int) []float64 {
	o := particle * p.NDims
	return p.Vel[o : o+p.NDims]
}

// Append adds one particle to species s, returning its new global index.
// It fails with ErrBufferOverflow if the species' block is already full.
func (p *Population) Append(s int, pos, vel []float64) (int, error) {
	if p.IStop[s] >= p.IStart[s]+p.BlockSize {
		return 0, ErrBufferOverflow
	}
	idx := p.IStop[s]
	copy(p.PosAt(idx), pos)
	copy(p.VelAt(idx), vel)
	p.IStop[s]++
	return idx, nil
}

// RemoveSwapLast removes particle at global index `particle` from species
// s by overwriting it with the species' current last live particle (an
// O(1) compaction that does not preserve particle order), then shrinking
// IStop[s] by one. particle must lie in [IStart[s], IStop[s]).
//
// The caller must re-examine the index it passed in after this call: the
// particle formerly at the last slot now lives at `particle`, so a
// forward-scanning loop over a species' range must not advance past a
// just-compacted index without revisiting it (spec.md §4.9's extraction
// loop relies on this).
func (p *Population) RemoveSwapLast(s, particle int) error {
	if particle < p.IStart[s] || particle >= p.IStop[s] {
		return ErrOutOfRange
	}
	last := p.IStop[s] - 1
	if particle != last {
		copy(p.PosAt(particle), p.PosAt(last))
		copy(p.VelAt(particle), p.VelAt(last))
	}
	p.IStop[s]--
	return nil
}

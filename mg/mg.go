// Package mg implements the residual computation, recursive V-cycle, and
// multigrid orchestrator (C5, C6) on top of grid, smoother, and transfer.
//
// Algorithm selection is dictionary-driven by name, generalizing
// original_source/src/multigrid.c's setSolvers/setRestrictProlong
// dispatch tables into tagged Go interface values instead of C function
// pointers (spec.md §9).
package mg

import (
	"errors"
	"fmt"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/halo"
	"github.com/pinc-go/pinc/smoother"
	"github.com/pinc-go/pinc/transfer"
	"github.com/pinc-go/pinc/transport"
)

// ErrNotHalvable is returned when the finest grid's spatial extents
// cannot be halved NLevels-1 times, i.e. trueSize[d] is not a multiple of
// 2^(NLevels-1). This is the "evidently intended" form of the original's
// divisibility check (DESIGN.md: "Divisibility-check precedence bug").
var ErrNotHalvable = errors.New("mg: finest trueSize is not divisible by 2^(NLevels-1) on every spatial axis")

// ErrZeroLevelsOrCycles mirrors the original mgAlloc guard: a solver
// configured with zero levels or zero cycles cannot make progress.
var ErrZeroLevelsOrCycles = errors.New("mg: NLevels and NCycles must both be positive")

// Restrictor and Prolongator are the tagged-variant strategy interfaces
// for the transfer operators, selected by name the same way Smoother
// implementations are.
type Restrictor interface {
	Restrict(conn transport.Conn, fine, coarse *grid.Grid) error
}

type Prolongator interface {
	Prolong(conn transport.Conn, coarse, fine *grid.Grid) error
}

// HalfWeight is the Restrictor grounded in halfWeightRestrict2D/3D.
type HalfWeight struct{}

func (HalfWeight) Restrict(conn transport.Conn, fine, coarse *grid.Grid) error {
	return transfer.Restrict(conn, fine, coarse)
}

// Bilinear is the Prolongator grounded in bilinearProlong2D/
// trilinearProlong3D.
type Bilinear struct{}

func (Bilinear) Prolong(conn transport.Conn, coarse, fine *grid.Grid) error {
	return transfer.Prolong(conn, coarse, fine)
}

// SmootherByName resolves a config-file smoother name to a Smoother
// value, mirroring the original's name-keyed solver table.
func SmootherByName(name string) (smoother.Smoother, error) {
	switch name {
	case "jacobian":
		return smoother.Jacobi{}, nil
	case "gaussSeidel":
		return smoother.GaussSeidel{}, nil
	default:
		return nil, fmt.Errorf("mg: unknown smoother %q", name)
	}
}

// Config holds the per-cycle tunables spec.md §6 names under `multigrid:`.
type Config struct {
	PreSmooth, PostSmooth, CoarseSolve         smoother.Smoother
	Restrictor                                 Restrictor
	Prolongator                                Prolongator
	NLevels, NCycles                           int
	NPreSmooth, NPostSmooth, NCoarseSolve       int
}

type level struct {
	phi, rho, res *grid.Grid
}

// Multigrid holds the full level hierarchy (C6, "Multigrid Orchestrator")
// and drives repeated V-cycles.
type Multigrid struct {
	cfg    Config
	conn   transport.Conn
	levels []level // index 0 is finest
}

// New allocates NLevels grids, each coarser level halving every spatial
// (axis >= 1) extent of the one above it — the clean halving invariant
// spec.md §3 states, not the original's buggy trueSize/(2*q) divisor (see
// DESIGN.md).
func New(conn transport.Conn, trueSize, nGhostLayers []int, cfg Config) (*Multigrid, error) {
	if cfg.NLevels <= 0 || cfg.NCycles <= 0 {
		return nil, ErrZeroLevelsOrCycles
	}
	rank := len(trueSize)
	divisor := 1 << uint(cfg.NLevels-1)
	for d := 1; d < rank; d++ {
		if trueSize[d]%divisor != 0 {
			return nil, fmt.Errorf("%w: axis %d trueSize=%d needs divisor %d", ErrNotHalvable, d, trueSize[d], divisor)
		}
	}

	levels := make([]level, cfg.NLevels)
	curTrue := append([]int(nil), trueSize...)
	curGhost := append([]int(nil), nGhostLayers...)
	for l := 0; l < cfg.NLevels; l++ {
		phi, err := grid.New(append([]int(nil), curTrue...), append([]int(nil), curGhost...))
		if err != nil {
			return nil, fmt.Errorf("mg: level %d phi: %w", l, err)
		}
		rho := grid.NewLike(phi)
		res := grid.NewLike(phi)
		levels[l] = level{phi: phi, rho: rho, res: res}
		for d := 1; d < rank; d++ {
			curTrue[d] /= 2
		}
	}

	if cfg.Restrictor == nil {
		cfg.Restrictor = HalfWeight{}
	}
	if cfg.Prolongator == nil {
		cfg.Prolongator = Bilinear{}
	}
	return &Multigrid{cfg: cfg, conn: conn, levels: levels}, nil
}

// Phi returns the finest level's potential grid, the one callers seed
// with an initial guess and read the solution from.
func (m *Multigrid) Phi() *grid.Grid { return m.levels[0].phi }

// Rho returns the finest level's source term grid, which callers fill in
// before calling Run.
func (m *Multigrid) Rho() *grid.Grid { return m.levels[0].rho }

// Run executes NCycles V-cycles and returns the finest-level residual L2
// norm measured after each cycle (spec.md §4.5 leaves convergence
// measurement to the caller; SPEC_FULL's diagnostics package consumes
// this history).
func (m *Multigrid) Run() ([]float64, error) {
	history := make([]float64, 0, m.cfg.NCycles)
	for c := 0; c < m.cfg.NCycles; c++ {
		if err := m.vcycle(0); err != nil {
			return history, err
		}
		fin := m.levels[0]
		residual(fin.phi, fin.rho, fin.res)
		history = append(history, l2Norm(fin.res))
	}
	return history, nil
}

// vcycle implements the recursive descent/ascent of spec.md §4.5.
func (m *Multigrid) vcycle(l int) error {
	lv := m.levels[l]
	if l == len(m.levels)-1 {
		return m.cfg.CoarseSolve.Smooth(m.conn, lv.phi, lv.rho, m.cfg.NCoarseSolve)
	}

	if err := m.cfg.PreSmooth.Smooth(m.conn, lv.phi, lv.rho, m.cfg.NPreSmooth); err != nil {
		return err
	}
	residual(lv.phi, lv.rho, lv.res)

	next := m.levels[l+1]
	next.rho.Zero()
	if err := m.cfg.Restrictor.Restrict(m.conn, lv.res, next.rho); err != nil {
		return err
	}
	next.phi.Zero()
	if err := m.vcycle(l + 1); err != nil {
		return err
	}

	lv.res.Zero()
	if err := m.cfg.Prolongator.Prolong(m.conn, next.phi, lv.res); err != nil {
		return err
	}
	lv.phi.AddFrom(lv.res)
	if err := halo.Exchange(m.conn, lv.phi); err != nil {
		return err
	}

	return m.cfg.PostSmooth.Smooth(m.conn, lv.phi, lv.rho, m.cfg.NPostSmooth)
}

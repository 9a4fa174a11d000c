package halo

import (
	"sync"
	"testing"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/transport"
)

// newTestGrid builds a 1-component, 1-D spatial grid (Rank=2) with one
// ghost layer on each side of the spatial axis, filled with a value
// identifying the owning rank.
func newTestGrid(t *testing.T, rank int, trueLen int) *grid.Grid {
	t.Helper()
	g, err := grid.New([]int{1, trueLen}, []int{0, 1, 0, 1})
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	ix := g.Indexer()
	ix.Walk(g.TrueSize, func(off int) {
		g.Val[off] = float64(rank)
	})
	return g
}

func TestExchangePeriodic1D(t *testing.T) {
	const nRanks = 3
	const trueLen = 4
	conns, err := transport.NewLocal([]int{nRanks})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	grids := make([]*grid.Grid, nRanks)
	for r := 0; r < nRanks; r++ {
		grids[r] = newTestGrid(t, r, trueLen)
	}

	var wg sync.WaitGroup
	errs := make([]error, nRanks)
	for r := 0; r < nRanks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = Exchange(conns[r], grids[r])
		}(r)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d Exchange: %v", r, err)
		}
	}

	for r := 0; r < nRanks; r++ {
		g := grids[r]
		lowNeighbor := (r - 1 + nRanks) % nRanks
		highNeighbor := (r + 1) % nRanks
		lowGhost := g.Val[g.Indexer().Offset([]int{0, 0})]
		highGhost := g.Val[g.Indexer().Offset([]int{0, trueLen + 1})]
		if lowGhost != float64(lowNeighbor) {
			t.Errorf("rank %d low ghost = %v, want %v", r, lowGhost, lowNeighbor)
		}
		if highGhost != float64(highNeighbor) {
			t.Errorf("rank %d high ghost = %v, want %v", r, highGhost, highNeighbor)
		}
	}
}

func TestExchangeConstantFieldUnchanged(t *testing.T) {
	const nRanks = 2
	const trueLen = 3
	conns, err := transport.NewLocal([]int{nRanks})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	grids := make([]*grid.Grid, nRanks)
	for r := 0; r < nRanks; r++ {
		g, err := grid.New([]int{1, trueLen}, []int{0, 1, 0, 1})
		if err != nil {
			t.Fatalf("grid.New: %v", err)
		}
		for i := range g.Val {
			g.Val[i] = 7
		}
		grids[r] = g
	}
	var wg sync.WaitGroup
	for r := 0; r < nRanks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			if err := Exchange(conns[r], grids[r]); err != nil {
				t.Errorf("rank %d: %v", r, err)
			}
		}(r)
	}
	wg.Wait()
	for r, g := range grids {
		for i, v := range g.Val {
			if v != 7 {
				t.Fatalf("rank %d Val[%d] = %v, want 7 (constant field must survive exchange)", r, i, v)
			}
		}
	}
}

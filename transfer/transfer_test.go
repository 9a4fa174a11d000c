package transfer

import (
	"math"
	"testing"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/transport"
)

func newLevelPair(t *testing.T, coarseTrue []int) (fine, coarse *grid.Grid, conn transport.Conn) {
	t.Helper()
	fineTrue := append([]int(nil), coarseTrue...)
	for d := 1; d < len(fineTrue); d++ {
		fineTrue[d] *= 2
	}
	nGhostFine := make([]int, 2*len(fineTrue))
	nGhostCoarse := make([]int, 2*len(coarseTrue))
	for d := 1; d < len(fineTrue); d++ {
		nGhostFine[d], nGhostFine[len(fineTrue)+d] = 1, 1
		nGhostCoarse[d], nGhostCoarse[len(coarseTrue)+d] = 1, 1
	}
	var err error
	fine, err = grid.New(fineTrue, nGhostFine)
	if err != nil {
		t.Fatalf("grid.New fine: %v", err)
	}
	coarse, err = grid.New(coarseTrue, nGhostCoarse)
	if err != nil {
		t.Fatalf("grid.New coarse: %v", err)
	}
	nSub := make([]int, len(coarseTrue)-1)
	for i := range nSub {
		nSub[i] = 1
	}
	conns, err := transport.NewLocal(nSub)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return fine, coarse, conns[0]
}

func TestRestrictConstantField(t *testing.T) {
	fine, coarse, conn := newLevelPair(t, []int{1, 4, 4})
	for i := range fine.Val {
		fine.Val[i] = 3
	}
	if err := Restrict(conn, fine, coarse); err != nil {
		t.Fatalf("Restrict: %v", err)
	}
	ix := coarse.Indexer()
	ix.Walk(coarse.TrueSize, func(off int) {
		if math.Abs(coarse.Val[off]-3) > 1e-12 {
			t.Fatalf("coarse[%d] = %v, want 3", off, coarse.Val[off])
		}
	})
}

func TestProlongConstantField(t *testing.T) {
	fine, coarse, conn := newLevelPair(t, []int{1, 4, 4})
	for i := range coarse.Val {
		coarse.Val[i] = 2
	}
	fine.Zero()
	if err := Prolong(conn, coarse, fine); err != nil {
		t.Fatalf("Prolong: %v", err)
	}
	ix := fine.Indexer()
	ix.Walk(fine.TrueSize, func(off int) {
		if math.Abs(fine.Val[off]-2) > 1e-9 {
			t.Fatalf("fine[%d] = %v, want 2", off, fine.Val[off])
		}
	})
}

func TestRestrictRejectsMismatchedLevels(t *testing.T) {
	fine, coarse, conn := newLevelPair(t, []int{1, 4, 4})
	coarse.TrueSize[1] = 3 // corrupt the halving invariant
	if err := Restrict(conn, fine, coarse); err == nil {
		t.Fatal("expected error for mismatched level sizes")
	}
}

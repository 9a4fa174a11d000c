package smoother

import (
	"math"
	"testing"

	"github.com/pinc-go/pinc/grid"
	"github.com/pinc-go/pinc/transport"
)

func newPeriodicGrid(t *testing.T, trueSize []int) (*grid.Grid, transport.Conn) {
	t.Helper()
	nGhost := make([]int, 2*len(trueSize))
	for d := range trueSize {
		nGhost[d] = 1
		nGhost[len(trueSize)+d] = 1
	}
	nGhost[0], nGhost[len(trueSize)] = 0, 0 // no ghosts on the component axis
	g, err := grid.New(trueSize, nGhost)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	nSub := make([]int, len(trueSize)-1)
	for i := range nSub {
		nSub[i] = 1
	}
	conns, err := transport.NewLocal(nSub)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return g, conns[0]
}

func TestJacobiPreservesConstantField(t *testing.T) {
	phi, conn := newPeriodicGrid(t, []int{1, 4, 4})
	rho := grid.NewLike(phi)
	for i := range phi.Val {
		phi.Val[i] = 5
	}
	j := Jacobi{}
	if err := j.Smooth(conn, phi, rho, 3); err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	for i, v := range phi.Val {
		if math.Abs(v-5) > 1e-12 {
			t.Fatalf("Val[%d] = %v, want 5", i, v)
		}
	}
}

func TestGaussSeidelPreservesConstantField(t *testing.T) {
	phi, conn := newPeriodicGrid(t, []int{1, 4, 4})
	rho := grid.NewLike(phi)
	for i := range phi.Val {
		phi.Val[i] = -2
	}
	gs := GaussSeidel{}
	if err := gs.Smooth(conn, phi, rho, 3); err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	for i, v := range phi.Val {
		if math.Abs(v-(-2)) > 1e-9 {
			t.Fatalf("Val[%d] = %v, want -2", i, v)
		}
	}
}

// TestGaussSeidelCoefficient3D pins every neighbor of one interior node to
// a known value and checks the updated value against the literal 0.125
// coefficient gaussSeidel3D hardcodes, not the generic 1/(2*nSpatial).
func TestGaussSeidelCoefficient3D(t *testing.T) {
	phi, conn := newPeriodicGrid(t, []int{1, 4, 4, 4})
	rho := grid.NewLike(phi)
	ix := phi.Indexer()

	// Pin one node red and isolate it: rho there is 4, every one of its 6
	// neighbors is 1, everywhere else stays 0 so it does not confound the
	// other (opposite-color) sweep.
	target := []int{0, 2, 2, 2}
	off := ix.Offset(target)
	rho.Val[off] = 4
	for d := 1; d < phi.Rank; d++ {
		phi.Val[ix.Neighbor(off, d, -1)] = 1
		phi.Val[ix.Neighbor(off, d, 1)] = 1
	}

	gs := GaussSeidel{}
	if err := gs.Smooth(conn, phi, rho, 1); err != nil {
		t.Fatalf("Smooth: %v", err)
	}

	want := (6.0 + 4.0) * 0.125 // (sum(neighbors) + rho) * 0.125, not /6
	if got := phi.Val[off]; math.Abs(got-want) > 1e-12 {
		t.Fatalf("phi at target = %v, want %v (literal 0.125 coefficient)", got, want)
	}
}

func TestGaussSeidelRejectsUnsupportedRank(t *testing.T) {
	phi, conn := newPeriodicGrid(t, []int{1, 4})
	rho := grid.NewLike(phi)
	gs := GaussSeidel{}
	if err := gs.Smooth(conn, phi, rho, 1); err == nil {
		t.Fatal("expected ErrUnsupportedRank for a 1-D spatial grid")
	}
}

func residualL2(phi, rho *grid.Grid, nSpatial int) float64 {
	ix := phi.Indexer()
	sumSq := 0.0
	ix.Walk(phi.TrueSize, func(off int) {
		sum := 0.0
		for d := 1; d < phi.Rank; d++ {
			sum += phi.Val[ix.Neighbor(off, d, -1)]
			sum += phi.Val[ix.Neighbor(off, d, 1)]
		}
		r := rho.Val[off] - (float64(2*nSpatial)*phi.Val[off] - sum)
		sumSq += r * r
	})
	return math.Sqrt(sumSq)
}

func TestGaussSeidelReducesResidual(t *testing.T) {
	phi, conn := newPeriodicGrid(t, []int{1, 4, 4})
	rho := grid.NewLike(phi)
	ix := rho.Indexer()
	rho.Val[ix.Offset([]int{0, 2, 2})] = 1
	before := residualL2(phi, rho, 2)

	gs := GaussSeidel{}
	if err := gs.Smooth(conn, phi, rho, 8); err != nil {
		t.Fatalf("Smooth: %v", err)
	}
	after := residualL2(phi, rho, 2)
	if after >= before {
		t.Fatalf("residual did not decrease: before=%v after=%v", before, after)
	}
}

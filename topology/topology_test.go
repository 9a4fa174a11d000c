package topology

import "testing"

func TestRankSubDomainRoundTrip(t *testing.T) {
	nSub := []int{3, 2, 4}
	total := 3 * 2 * 4
	for rank := 0; rank < total; rank++ {
		sub := RankToSubDomain(nSub, rank)
		got := SubDomainToRank(nSub, sub)
		if got != rank {
			t.Fatalf("rank %d -> sub %v -> rank %d, want round trip", rank, sub, got)
		}
	}
}

func TestReciprocalIsInvolution(t *testing.T) {
	nDims := 3
	total := 1
	for d := 0; d < nDims; d++ {
		total *= 3
	}
	for n := 0; n < total; n++ {
		r := NeighborToReciprocal(nDims, n)
		rr := NeighborToReciprocal(nDims, r)
		if rr != n {
			t.Fatalf("reciprocal(reciprocal(%d)) = %d, want %d", n, rr, n)
		}
	}
}

func TestSelfNeighborIsOwnReciprocal(t *testing.T) {
	for nDims := 1; nDims <= 3; nDims++ {
		self := SelfNeighbor(nDims)
		if NeighborToReciprocal(nDims, self) != self {
			t.Fatalf("nDims=%d: reciprocal(self) != self", nDims)
		}
	}
}

func TestNeighborToRankRoundTripsViaReciprocal(t *testing.T) {
	nSub := []int{4, 3}
	total := 12
	for rank := 0; rank < total; rank++ {
		info, err := New(nSub, rank)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		nNeighbors := info.NumNeighbors()
		for n := 0; n < nNeighbors; n++ {
			neighborRank := info.NeighborToRank(n)
			neighborInfo, err := New(nSub, neighborRank)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			recip := NeighborToReciprocal(info.NDims, n)
			backRank := neighborInfo.NeighborToRank(recip)
			if backRank != rank {
				t.Fatalf("rank %d neighbor %d -> rank %d, reciprocal %d -> rank %d, want %d",
					rank, n, neighborRank, recip, backRank, rank)
			}
		}
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	if _, err := New([]int{0, 2}, 0); err == nil {
		t.Fatal("expected error for zero subdomain count")
	}
	if _, err := New([]int{2, 2}, 4); err == nil {
		t.Fatal("expected error for out-of-range rank")
	}
}

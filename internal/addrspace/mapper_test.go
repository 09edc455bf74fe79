package addrspace

import "testing"

// TestReserveFreeRoundTrip checks the §8 invariant: after reserve(a,s)
// followed by free(a), the free list equals its pre-reserve state.
func TestReserveFreeRoundTrip(t *testing.T) {
	r, err := New(64 * PageSize)
	if err != nil {
		t.Fatal(err)
	}
	before := r.FreeRanges()

	if err := r.Reserve(8*PageSize, 4*PageSize); err != nil {
		t.Fatal(err)
	}
	if err := r.Free(8 * PageSize); err != nil {
		t.Fatal(err)
	}

	after := r.FreeRanges()
	if len(before) != len(after) {
		t.Fatalf("free list length changed: before=%v after=%v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("free list mismatch at %d: before=%v after=%v", i, before[i], after[i])
		}
	}
}

func TestReserveMisalignedFails(t *testing.T) {
	r, _ := New(64 * PageSize)
	if err := r.Reserve(1, PageSize); err == nil {
		t.Fatal("expected misalignment error")
	}
}

func TestMapThenUnmapThenFree(t *testing.T) {
	r, _ := New(64 * PageSize)
	if err := r.Map(0, 4*PageSize, 0, ProtRead.ReadWrite()); err != nil {
		t.Fatal(err)
	}
	if got := r.MappedRanges(); len(got) != 1 {
		t.Fatalf("expected one mapping, got %v", got)
	}
	if err := r.Unmap(0); err != nil {
		t.Fatal(err)
	}
	if err := r.Free(0); err != nil {
		t.Fatal(err)
	}
	fr := r.FreeRanges()
	if len(fr) != 1 || fr[0][0] != 0 || fr[0][1] != 64*PageSize {
		t.Fatalf("expected fully-coalesced free range, got %v", fr)
	}
}

func TestFreeAndMappedPartitionSpace(t *testing.T) {
	r, _ := New(16 * PageSize)
	if err := r.Map(0, 2*PageSize, 0, ProtRead.ReadWrite()); err != nil {
		t.Fatal(err)
	}
	if err := r.Reserve(2*PageSize, 2*PageSize); err != nil {
		t.Fatal(err)
	}

	covered := make([]bool, 16)
	for _, f := range r.FreeRanges() {
		for p := f[0] / PageSize; p < f[1]/PageSize; p++ {
			if covered[p] {
				t.Fatalf("page %d double-covered", p)
			}
			covered[p] = true
		}
	}
	for _, m := range r.MappedRanges() {
		for p := m[0] / PageSize; p < m[1]/PageSize; p++ {
			if covered[p] {
				t.Fatalf("page %d double-covered", p)
			}
			covered[p] = true
		}
	}
	// Reserved-but-unmapped pages (2..3) are neither free nor mapped;
	// pages 0,1 are covered by the mapping (4..15 by the free list).
	for p := 0; p < 2; p++ {
		if !covered[p] {
			t.Fatalf("page %d should be mapped", p)
		}
	}
}

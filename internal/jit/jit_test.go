package jit

import "testing"

func TestAddAndGetBlock(t *testing.T) {
	c := New(0x1000)
	blk := Block{GuestBase: 0x100, GuestEnd: 0x120, NumInstructions: 8, End: EndMaxSize}
	if !c.AddBlock(blk) {
		t.Fatal("AddBlock failed on fresh cache")
	}
	got := c.GetBlock(0x100)
	if got == nil {
		t.Fatal("GetBlock returned nil")
	}
	if got.GuestEnd != 0x120 || got.NumInstructions != 8 {
		t.Fatalf("unexpected block contents: %+v", got)
	}
}

func TestAddDuplicateBaseFails(t *testing.T) {
	c := New(0x1000)
	blk := Block{GuestBase: 0x200, GuestEnd: 0x210}
	if !c.AddBlock(blk) {
		t.Fatal("first AddBlock should succeed")
	}
	if c.AddBlock(Block{GuestBase: 0x200, GuestEnd: 0x240}) {
		t.Fatal("AddBlock should fail on duplicate GuestBase")
	}
}

func TestGetBlockMidBlockMiss(t *testing.T) {
	c := New(0x1000)
	c.AddBlock(Block{GuestBase: 0x100, GuestEnd: 0x140})
	if c.GetBlock(0x110) != nil {
		t.Fatal("GetBlock should not match an address in the middle of a block")
	}
}

func TestInvalidateOverlapping(t *testing.T) {
	c := New(0x1000)
	c.AddBlock(Block{GuestBase: 0x100, GuestEnd: 0x120})
	c.AddBlock(Block{GuestBase: 0x130, GuestEnd: 0x150})
	c.AddBlock(Block{GuestBase: 0x900, GuestEnd: 0x950})

	n := c.Invalidate(0x110, 0x30) // [0x110, 0x140): overlaps both first two blocks
	if n != 2 {
		t.Fatalf("expected 2 blocks invalidated, got %d", n)
	}
	if c.GetBlock(0x100) != nil || c.GetBlock(0x130) != nil {
		t.Fatal("invalidated blocks should no longer be retrievable")
	}
	if c.GetBlock(0x900) == nil {
		t.Fatal("non-overlapping block should survive invalidation")
	}
	if c.NumBlocks() != 1 {
		t.Fatalf("expected 1 remaining block, got %d", c.NumBlocks())
	}
}

func TestReuseFreedSlot(t *testing.T) {
	c := New(0x1000)
	c.AddBlock(Block{GuestBase: 0x100, GuestEnd: 0x110})
	c.Invalidate(0x100, 0x10)
	if !c.AddBlock(Block{GuestBase: 0x100, GuestEnd: 0x118}) {
		t.Fatal("should be able to re-add a block at a freed address")
	}
	got := c.GetBlock(0x100)
	if got == nil || got.GuestEnd != 0x118 {
		t.Fatalf("unexpected state after reuse: %+v", got)
	}
}

func TestInvalidateAcrossBucketBoundary(t *testing.T) {
	c := New(0x100)
	c.AddBlock(Block{GuestBase: 0xF0, GuestEnd: 0x110}) // spans two buckets
	n := c.Invalidate(0x100, 0x10)
	if n != 1 {
		t.Fatalf("expected cross-bucket block to be invalidated, got %d removed", n)
	}
}

package addrspace

import (
	"fmt"
	"sort"
)

// PageSize is the host page granularity every reserve/map/unmap/free
// call must align to.
const PageSize = 4096

// Protection is the access mode of a mapped range.
type Protection int

const (
	ProtNone Protection = 0
	ProtRead Protection = 1 << iota
	ProtWrite
)

func (p Protection) ReadWrite() Protection { return ProtRead | ProtWrite }

// hostRange is a half-open [Start, End) byte range within the 4 GiB
// reservation.
type hostRange struct {
	Start, End uint64
}

func (r hostRange) size() uint64 { return r.End - r.Start }

// mapping describes a mapped (backed) range: an offset into the
// shared memory file and a protection.
type mapping struct {
	hostRange
	fileOffset uint64
	prot       Protection
}

// Reservation is the 4 GiB host address-space reservation: a free list
// plus a mapped list that always partition [0, Size).
type Reservation struct {
	Size uint64

	free          []hostRange
	mapped        []mapping
	reservedSizes map[uint64]uint64 // offset -> size, for Reserve()d-but-unmapped ranges
}

// New creates a reservation of the given size (must be a multiple of
// PageSize), entirely free.
func New(size uint64) (*Reservation, error) {
	if size == 0 || size%PageSize != 0 {
		return nil, fmt.Errorf("addrspace: size %#x not page-aligned", size)
	}
	return &Reservation{
		Size:          size,
		free:          []hostRange{{Start: 0, End: size}},
		reservedSizes: make(map[uint64]uint64),
	}, nil
}

func aligned(v uint64) bool { return v%PageSize == 0 }

func (r *Reservation) sortFree() {
	sort.Slice(r.free, func(i, j int) bool { return r.free[i].Start < r.free[j].Start })
}

func (r *Reservation) sortMapped() {
	sort.Slice(r.mapped, func(i, j int) bool { return r.mapped[i].Start < r.mapped[j].Start })
}

// removeFree deletes a free range covering exactly [start,end),
// splitting its containing free range into up to two remainders.
func (r *Reservation) removeFree(start, end uint64) error {
	for i, f := range r.free {
		if f.Start <= start && end <= f.End {
			var replacement []hostRange
			if f.Start < start {
				replacement = append(replacement, hostRange{f.Start, start})
			}
			if end < f.End {
				replacement = append(replacement, hostRange{end, f.End})
			}
			r.free = append(r.free[:i], append(replacement, r.free[i+1:]...)...)
			return nil
		}
	}
	return fmt.Errorf("addrspace: range [%#x,%#x) is not free", start, end)
}

// addFree inserts [start,end) back into the free list, coalescing with
// any adjacent free neighbours.
func (r *Reservation) addFree(start, end uint64) {
	r.free = append(r.free, hostRange{start, end})
	r.sortFree()
	merged := r.free[:0]
	for _, f := range r.free {
		if len(merged) > 0 && merged[len(merged)-1].End == f.Start {
			merged[len(merged)-1].End = f.End
			continue
		}
		merged = append(merged, f)
	}
	r.free = merged
}

// Reserve removes [offset, offset+size) from the free list and marks
// it reserved-but-unbacked. Both offset and size must be page-aligned.
func (r *Reservation) Reserve(offset, size uint64) error {
	if !aligned(offset) || !aligned(size) {
		return fmt.Errorf("addrspace: reserve(%#x,%#x) not page-aligned", offset, size)
	}
	if offset+size > r.Size {
		return fmt.Errorf("addrspace: reserve(%#x,%#x) exceeds reservation size %#x", offset, size, r.Size)
	}
	if err := r.removeFree(offset, offset+size); err != nil {
		return err
	}
	r.reservedSizes[offset] = size
	return nil
}

// Map replaces a prior Reserve (or directly maps previously-free
// space) with a backed view at fileOffset with the given protection.
func (r *Reservation) Map(offset, size, fileOffset uint64, prot Protection) error {
	if !aligned(offset) || !aligned(size) || !aligned(fileOffset) {
		return fmt.Errorf("addrspace: map(%#x,%#x,%#x) not page-aligned", offset, size, fileOffset)
	}
	// A map() may target space that's still on the free list (skip the
	// separate reserve step) or space already reserved via Reserve().
	if err := r.removeFree(offset, offset+size); err != nil {
		if reservedSize, ok := r.reservedSizes[offset]; !ok || reservedSize != size {
			return fmt.Errorf("addrspace: map(%#x,%#x) is neither free nor a matching reservation", offset, size)
		}
		delete(r.reservedSizes, offset)
	}
	r.mapped = append(r.mapped, mapping{hostRange{offset, offset + size}, fileOffset, prot})
	r.sortMapped()
	return nil
}

// Unmap reverts the mapping starting at offset back to a bare
// reservation (no backing memory, still excluded from the free list).
func (r *Reservation) Unmap(offset uint64) error {
	for i, m := range r.mapped {
		if m.Start == offset {
			r.mapped = append(r.mapped[:i], r.mapped[i+1:]...)
			r.reservedSizes[offset] = m.size()
			return nil
		}
	}
	return fmt.Errorf("addrspace: unmap(%#x): no mapping at that offset", offset)
}

// Free releases a reserved-but-unmapped range back to the free list,
// coalescing with neighbours.
func (r *Reservation) Free(offset uint64) error {
	for _, m := range r.mapped {
		if m.Start == offset {
			return fmt.Errorf("addrspace: free(%#x): range is still mapped", offset)
		}
	}
	// Determine the extent of the reserved gap by finding the nearest
	// mapped/free boundaries surrounding offset; callers always free
	// exactly what they reserved, so we trust the caller-supplied
	// offset-only handle by recording sizes during Reserve.
	size, ok := r.reservedSizes[offset]
	if !ok {
		return fmt.Errorf("addrspace: free(%#x): no such reservation", offset)
	}
	delete(r.reservedSizes, offset)
	r.addFree(offset, offset+size)
	return nil
}

// FreeRanges returns a copy of the current free-list ranges as
// [start,end) pairs, sorted by start. Exposed for invariant tests.
func (r *Reservation) FreeRanges() [][2]uint64 {
	r.sortFree()
	out := make([][2]uint64, len(r.free))
	for i, f := range r.free {
		out[i] = [2]uint64{f.Start, f.End}
	}
	return out
}

// MappedRanges returns a copy of the current mapped-list ranges as
// [start,end) pairs, sorted by start. Exposed for invariant tests.
func (r *Reservation) MappedRanges() [][2]uint64 {
	r.sortMapped()
	out := make([][2]uint64, len(r.mapped))
	for i, m := range r.mapped {
		out[i] = [2]uint64{m.Start, m.End}
	}
	return out
}

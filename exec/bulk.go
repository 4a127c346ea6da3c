package exec

// inBounds returns true if the range [offset, offset+length) lies within [0, size). An offset equal to size is
// in bounds if length is zero. The check cannot overflow.
func inBounds(offset, length, size uint64) bool {
	return offset <= size && length <= size-offset
}

// TableCopy implements table.copy: it copies length slots from src[srcOffset:] to dst[dstOffset:]. If either
// range is out of bounds, TableCopy returns TrapOutOfBoundsTableAccess and neither table is modified.
//
// dst and src may be the same table and the ranges may overlap; the result is as if the source range were read
// in full before any slot is written. Uninitialized source slots are copied as uninitialized.
//
// Offsets and lengths of 32-bit tables are zero-extended i32 operands.
func TableCopy(dst, src *Table, dstOffset, srcOffset, length uint64) error {
	if !inBounds(srcOffset, length, src.Size()) || !inBounds(dstOffset, length, dst.Size()) {
		return TrapOutOfBoundsTableAccess
	}

	// copy has memmove semantics for overlapping slices.
	copy(dst.slots[dstOffset:dstOffset+length], src.slots[srcOffset:srcOffset+length])
	return nil
}

// TableInit implements table.init: it copies length entries from seg[srcOffset:] to dst[dstOffset:]. If either
// range is out of bounds, TableInit returns TrapOutOfBoundsTableAccess and the table is not modified. A dropped
// segment has no accessible entries.
func TableInit(dst *Table, seg *ElementSegment, dstOffset, srcOffset, length uint64) error {
	if !inBounds(srcOffset, length, seg.Len()) || !inBounds(dstOffset, length, dst.Size()) {
		return TrapOutOfBoundsTableAccess
	}

	slots := dst.slots[dstOffset : dstOffset+length]
	for i, fn := range seg.entries[srcOffset : srcOffset+length] {
		slots[i] = Bound(fn)
	}
	return nil
}

// ElemDrop implements elem.drop. Dropping a segment more than once is permitted. Tables previously initialized
// from the segment are unaffected.
func ElemDrop(seg *ElementSegment) {
	seg.dropped, seg.entries = true, nil
}

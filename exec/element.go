package exec

import "github.com/pgavlin/warptab/wasm"

// An ElementSegment is an instantiated element segment: an immutable sequence of function references that
// table.init copies into a table. Once dropped, a segment's entries are no longer accessible.
type ElementSegment struct {
	index   uint32
	mode    wasm.ElementMode
	entries []Function
	dropped bool
}

// NewElementSegment creates a new element segment with the given index, mode, and entries. Every entry must
// be non-nil.
func NewElementSegment(index uint32, mode wasm.ElementMode, entries []Function) *ElementSegment {
	for _, fn := range entries {
		if fn == nil {
			panic("exec: element segment entries must be non-nil")
		}
	}
	return &ElementSegment{index: index, mode: mode, entries: entries}
}

// Index returns the segment's index in its module's element segment index space.
func (s *ElementSegment) Index() uint32 {
	return s.index
}

// Mode returns the segment's mode.
func (s *ElementSegment) Mode() wasm.ElementMode {
	return s.mode
}

// Dropped returns true if the segment has been dropped.
func (s *ElementSegment) Dropped() bool {
	return s.dropped
}

// Len returns the number of accessible entries in the segment. A dropped segment has no accessible entries.
func (s *ElementSegment) Len() uint64 {
	if s.dropped {
		return 0
	}
	return uint64(len(s.entries))
}

package exec

import (
	"github.com/pgavlin/warptab/wasm"
	"github.com/willf/bitset"
)

// A Slot is a single table element. The zero value is an uninitialized slot; a bound slot holds a function
// reference. Calling or reading an uninitialized slot traps.
type Slot struct {
	fn Function
}

// Uninitialized is the state of every slot of a newly-created table.
var Uninitialized = Slot{}

// Bound returns a slot that refers to the given function.
func Bound(fn Function) Slot {
	if fn == nil {
		panic("exec: cannot bind a slot to a nil function")
	}
	return Slot{fn: fn}
}

// IsBound returns true if the slot refers to a function.
func (s Slot) IsBound() bool {
	return s.fn != nil
}

// Function returns the function referred to by the slot, if any.
func (s Slot) Function() (Function, bool) {
	return s.fn, s.fn != nil
}

// Table is a WASM table.
type Table struct {
	indexType wasm.IndexType
	min, max  uint64
	slots     []Slot
}

// NewTable creates a new WASM table with min uninitialized slots.
func NewTable(indexType wasm.IndexType, min, max uint64) Table {
	return Table{indexType: indexType, min: min, max: max, slots: make([]Slot, int(min))}
}

// IndexType returns the type of the values used to index the table.
func (t *Table) IndexType() wasm.IndexType {
	return t.indexType
}

// Limits returns the minimum and maximum size of the table in elements.
func (t *Table) Limits() (min uint64, max uint64) {
	return t.min, t.max
}

// Size returns the current number of slots in the table.
func (t *Table) Size() uint64 {
	return uint64(len(t.slots))
}

// Slots returns a copy of the table's slots.
func (t *Table) Slots() []Slot {
	slots := make([]Slot, len(t.slots))
	copy(slots, t.slots)
	return slots
}

// Resolve returns the function referred to by the slot at the given index.
func (t *Table) Resolve(index uint64) (Function, error) {
	if index >= t.Size() {
		return nil, TrapOutOfBoundsTableAccess
	}
	fn, ok := t.slots[index].Function()
	if !ok {
		return nil, TrapUninitializedElement
	}
	return fn, nil
}

// Occupancy returns the set of bound slots in the table.
func (t *Table) Occupancy() *bitset.BitSet {
	occupied := bitset.New(uint(len(t.slots)))
	for i, s := range t.slots {
		if s.IsBound() {
			occupied.Set(uint(i))
		}
	}
	return occupied
}

package dump

import (
	"fmt"
	"io"

	"github.com/willf/bitset"

	"github.com/pgavlin/warptab/exec"
)

// A slotRange is a maximal run of slots that are either all bound or all uninitialized.
type slotRange struct {
	start, end uint64
	bound      bool
}

func (r slotRange) String() string {
	state := "uninitialized"
	if r.bound {
		state = "bound"
	}
	return fmt.Sprintf("[%v, %v) %v", r.start, r.end, state)
}

func slotRanges(occupied *bitset.BitSet, size uint64) []slotRange {
	var ranges []slotRange
	for i := uint64(0); i < size; {
		r := slotRange{start: i, bound: occupied.Test(uint(i))}
		for i < size && occupied.Test(uint(i)) == r.bound {
			i++
		}
		r.end = i
		ranges = append(ranges, r)
	}
	return ranges
}

func dumpLayout(w io.Writer, tables []moduleTable) error {
	for _, t := range tables {
		min, max := t.table.Limits()
		if _, err := fmt.Fprintf(w, "%v table %v (%v, size %v, min %v, max %v)\n", t.module, t.index, t.table.IndexType(), t.table.Size(), min, max); err != nil {
			return err
		}
		for _, r := range slotRanges(t.table.Occupancy(), t.table.Size()) {
			if _, err := fmt.Fprintf(w, "  %v\n", r); err != nil {
				return err
			}
		}
	}
	return nil
}

type moduleTable struct {
	module string
	index  int
	table  *exec.Table
}

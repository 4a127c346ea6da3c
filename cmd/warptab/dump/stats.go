package dump

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
)

func dumpStats(w io.Writer, tables []moduleTable) error {
	type row struct {
		Module        string `csv:"module"`
		Table         int    `csv:"table"`
		IndexType     string `csv:"index type"`
		Size          uint64 `csv:"size"`
		Min           uint64 `csv:"min"`
		Max           uint64 `csv:"max"`
		Bound         uint   `csv:"bound"`
		Uninitialized uint64 `csv:"uninitialized"`
	}

	csvWriter := csv.NewWriter(w)

	encoder := csvutil.NewEncoder(csvWriter)

	for _, t := range tables {
		min, max := t.table.Limits()
		bound := t.table.Occupancy().Count()
		r := row{
			Module:        t.module,
			Table:         t.index,
			IndexType:     t.table.IndexType().String(),
			Size:          t.table.Size(),
			Min:           min,
			Max:           max,
			Bound:         bound,
			Uninitialized: t.table.Size() - uint64(bound),
		}
		if err := encoder.Encode(&r); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

package counts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/carbocation/pfx"
)

// Write emits the matrix as a delimited table whose first column is named
// rowHeader.
func (m *Matrix) Write(w io.Writer, delim rune, rowHeader string) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	if err := cw.Write(append([]string{rowHeader}, m.Samples...)); err != nil {
		return pfx.Err(err)
	}

	rec := make([]string, len(m.Samples)+1)
	for i, g := range m.Genes {
		rec[0] = g
		for j, v := range m.Values[i] {
			rec[j+1] = strconv.Itoa(v)
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return pfx.Err(cw.Error())
}

// WriteFloatTable emits a labeled matrix of real values, such as normalized or
// variance-stabilized counts. Values are written with 6 significant digits.
func WriteFloatTable(w io.Writer, delim rune, rowHeader string, rows, cols []string, values [][]float64) error {
	if len(rows) != len(values) {
		return fmt.Errorf("%d row labels for %d rows", len(rows), len(values))
	}

	cw := csv.NewWriter(w)
	cw.Comma = delim

	if err := cw.Write(append([]string{rowHeader}, cols...)); err != nil {
		return pfx.Err(err)
	}

	rec := make([]string, len(cols)+1)
	for i, label := range rows {
		if len(values[i]) != len(cols) {
			return fmt.Errorf("row %s has %d values, expected %d", label, len(values[i]), len(cols))
		}
		rec[0] = label
		for j, v := range values[i] {
			rec[j+1] = strconv.FormatFloat(v, 'g', 6, 64)
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}

	cw.Flush()
	return pfx.Err(cw.Error())
}

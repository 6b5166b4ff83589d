// Package table holds the CSV conventions shared by every exported result
// table: struct rows marshaled with gocsv, floats at six significant digits
// and NA for missing values.
package table

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// NA is written for missing numeric values.
const NA = "NA"

// Float is a float64 column that marshals to six significant digits and
// treats NaN as NA.
type Float float64

// NaN returns a missing Float.
func NaN() Float { return Float(math.NaN()) }

// IsNA reports whether the value is missing.
func (f Float) IsNA() bool { return math.IsNaN(float64(f)) }

func (f Float) MarshalCSV() (string, error) {
	return FormatFloat(float64(f)), nil
}

func (f *Float) UnmarshalCSV(s string) error {
	v, err := ParseFloat(s)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// FormatFloat renders v with six significant digits, or NA.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// ParseFloat accepts NA (and an empty cell) as NaN.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NA) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, pfx.Err(err)
	}
	return v, nil
}

// Round returns v as it would read back after a write.
func Round(v float64) float64 {
	out, _ := ParseFloat(FormatFloat(v))
	return out
}

// Write marshals a slice of tagged structs (or pointers to them) as CSV with
// a header row.
func Write(w io.Writer, rows interface{}) error {
	return pfx.Err(gocsv.Marshal(rows, w))
}

// Read unmarshals CSV with a header row into a pointer to a slice of tagged
// structs.
func Read(r io.Reader, rows interface{}) error {
	return pfx.Err(gocsv.Unmarshal(r, rows))
}

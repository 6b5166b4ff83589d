package plots

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/pfx"
)

// PValueHistogram prints a text histogram of p-values, a quick check for
// calibration (flat with a spike near zero is the expected shape).
func PValueHistogram(w io.Writer, pvalues []float64, bins int) error {
	if len(pvalues) == 0 {
		_, err := fmt.Fprintln(w, "no p-values to summarize")
		return pfx.Err(err)
	}
	if bins <= 0 {
		bins = 20
	}

	hist := histogram.Hist(bins, pvalues)
	return pfx.Err(histogram.Fprint(w, hist, histogram.Linear(40)))
}

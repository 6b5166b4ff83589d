package deseq

import (
	"math"
	"sort"
)

// AdjustBH applies the Benjamini-Hochberg step-up procedure. NaN p-values are
// treated as missing: they are excluded from the number of tests and stay NaN
// in the output.
func AdjustBH(pvalues []float64) []float64 {
	out := make([]float64, len(pvalues))
	idx := make([]int, 0, len(pvalues))
	for i, p := range pvalues {
		out[i] = math.NaN()
		if !math.IsNaN(p) {
			idx = append(idx, i)
		}
	}

	m := len(idx)
	if m == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return pvalues[idx[a]] < pvalues[idx[b]]
	})

	running := 1.0
	for rank := m; rank >= 1; rank-- {
		i := idx[rank-1]
		q := pvalues[i] * float64(m) / float64(rank)
		if q < running {
			running = q
		}
		out[i] = running
	}

	return out
}

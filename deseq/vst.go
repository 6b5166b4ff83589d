package deseq

import "math"

// VST returns variance-stabilized expression values, genes x samples. With a
// usable parametric trend the closed-form transform for
// Var = mu + (a0 + a1/mu)*mu^2 is applied to normalized counts; otherwise
// log2(normalized + 1).
func (f *Fit) VST() [][]float64 {
	norm := f.NormalizedCounts()
	tr := f.Trend

	out := make([][]float64, len(norm))
	for i, row := range norm {
		out[i] = make([]float64, len(row))
		for j, q := range row {
			if tr.Usable() {
				out[i][j] = parametricVST(q, tr.A0, tr.A1)
			} else {
				out[i][j] = math.Log2(q + 1)
			}
		}
	}

	return out
}

func parametricVST(q, a0, a1 float64) float64 {
	return math.Log2((1 + a1 + 2*a0*q + 2*math.Sqrt(a0*q*(1+a1+a0*q))) / (4 * a0))
}

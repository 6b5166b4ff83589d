package deseq

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Result is one gene's test outcome. Log fold changes and their standard
// errors are on the log2 scale. Untested genes carry NaN statistics.
type Result struct {
	Gene           string
	BaseMean       float64
	Log2FoldChange float64
	LfcSE          float64
	Stat           float64
	PValue         float64
	PAdj           float64
}

// Contrast runs a Wald test of log2(numerator/denominator) for one factor of
// the design. Adjusted p-values are Benjamini-Hochberg over the tested genes.
func (f *Fit) Contrast(factor, numerator, denominator string) ([]Result, error) {
	c, err := f.Design.ContrastVector(factor, numerator, denominator)
	if err != nil {
		return nil, err
	}
	return f.WaldVector(c)
}

// WaldVector tests an arbitrary linear combination of coefficients.
func (f *Fit) WaldVector(c []float64) ([]Result, error) {
	if len(c) != len(f.Design.Names) {
		return nil, fmt.Errorf("contrast has %d weights but the design has %d coefficients", len(c), len(f.Design.Names))
	}
	return f.wald(c), nil
}

func (f *Fit) wald(c []float64) []Result {
	out := make([]Result, len(f.Genes))
	pvals := make([]float64, len(f.Genes))

	for i, gene := range f.Genes {
		r := Result{
			Gene:           gene,
			BaseMean:       f.BaseMean[i],
			Log2FoldChange: math.NaN(),
			LfcSE:          math.NaN(),
			Stat:           math.NaN(),
			PValue:         math.NaN(),
		}

		if !f.AllZero[i] {
			est := 0.0
			for k, w := range c {
				est += w * f.Beta[i][k]
			}
			r.Log2FoldChange = est / math.Ln2

			if cov := f.Cov[i]; cov != nil {
				v := 0.0
				for a, wa := range c {
					for b, wb := range c {
						v += wa * cov.At(a, b) * wb
					}
				}
				if v > 0 {
					se := math.Sqrt(v)
					r.LfcSE = se / math.Ln2
					r.Stat = est / se
					r.PValue = 2 * distuv.UnitNormal.CDF(-math.Abs(r.Stat))
				}
			}
		}

		pvals[i] = r.PValue
		out[i] = r
	}

	for i, q := range AdjustBH(pvals) {
		out[i].PAdj = q
	}

	return out
}

// LRT compares the full model against a reduced formula using the fitted
// dispersions. Stat is the deviance difference; Log2FoldChange and LfcSE
// describe the last coefficient of the full design.
func (f *Fit) LRT(ctx context.Context, reducedFormula string) ([]Result, error) {
	reduced, err := NewDesign(f.meta, reducedFormula, f.reference)
	if err != nil {
		return nil, err
	}
	_, pFull := f.Design.X.Dims()
	_, pReduced := reduced.X.Dims()
	df := pFull - pReduced
	if df < 1 {
		return nil, fmt.Errorf("reduced design %q must have fewer coefficients than %q", reducedFormula, f.Design.Formula)
	}

	chi := distuv.ChiSquared{K: float64(df)}
	last := pFull - 1

	out := make([]Result, len(f.Genes))
	pvals := make([]float64, len(f.Genes))
	for i, gene := range f.Genes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := Result{
			Gene:           gene,
			BaseMean:       f.BaseMean[i],
			Log2FoldChange: math.NaN(),
			LfcSE:          math.NaN(),
			Stat:           math.NaN(),
			PValue:         math.NaN(),
		}

		if !f.AllZero[i] {
			r.Log2FoldChange = f.Beta[i][last] / math.Ln2
			if cov := f.Cov[i]; cov != nil && cov.At(last, last) > 0 {
				r.LfcSE = math.Sqrt(cov.At(last, last)) / math.Ln2
			}

			fit := fitGLM(toFloat(f.values[i]), f.SizeFactors, reduced.X, f.Dispersions[i], f.opts)
			r.Stat = math.Max(fit.Deviance-f.Deviance[i], 0)
			r.PValue = chi.Survival(r.Stat)
		}

		pvals[i] = r.PValue
		out[i] = r
	}

	for i, q := range AdjustBH(pvals) {
		out[i].PAdj = q
	}

	return out, nil
}

package deseq

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Trend is the fitted mean-dispersion relationship alpha(mu) = A0 + A1/mu.
// When MeanOnly is set the trend is the constant A0.
type Trend struct {
	A0, A1   float64
	MeanOnly bool
}

// At evaluates the trend at a mean normalized count.
func (t Trend) At(mean float64) float64 {
	if t.MeanOnly || mean <= 0 {
		return t.A0
	}
	return t.A0 + t.A1/mean
}

// Usable reports whether the trend can drive the parametric VST.
func (t Trend) Usable() bool {
	return !t.MeanOnly && t.A0 > 0 && t.A1 >= 0 && !math.IsNaN(t.A0) && !math.IsNaN(t.A1)
}

func (o Options) maxDispersion(nSamples int) float64 {
	return math.Max(10, float64(nSamples))
}

// geneWiseDispersion maximizes the Cox-Reid adjusted profile likelihood of
// one gene. It returns the estimate and the means of the last fit.
func geneWiseDispersion(y, sf []float64, x *mat.Dense, opts Options) (float64, []float64) {
	n, p := x.Dims()
	lo, hi := math.Log(opts.MinDispersion), math.Log(opts.maxDispersion(n))

	// Rough method-of-moments start from a near-Poisson fit.
	fit := fitGLM(y, sf, x, 0.1, opts)
	rough := 0.0
	for j := range y {
		d := y[j] - fit.Mu[j]
		rough += (d*d - fit.Mu[j]) / (fit.Mu[j] * fit.Mu[j])
	}
	rough /= float64(n - p)
	alpha := clamp(rough, opts.MinDispersion, opts.maxDispersion(n))

	mu := fit.Mu
	for round := 0; round < 2; round++ {
		mu = fitGLM(y, sf, x, alpha, opts).Mu
		cur := mu
		alpha = math.Exp(maximize1D(func(logAlpha float64) float64 {
			a := math.Exp(logAlpha)
			return logLikNB(y, cur, a) - coxReidAdjustment(x, cur, a)
		}, lo, hi))
	}

	return alpha, mu
}

// mapDispersion maximizes the adjusted profile likelihood plus a log-normal
// prior centered on the trend.
func mapDispersion(y, mu []float64, x *mat.Dense, trend, priorVar float64, opts Options) float64 {
	n, _ := x.Dims()
	lo, hi := math.Log(opts.MinDispersion), math.Log(opts.maxDispersion(n))
	logTrend := math.Log(trend)

	return math.Exp(maximize1D(func(logAlpha float64) float64 {
		a := math.Exp(logAlpha)
		d := logAlpha - logTrend
		return logLikNB(y, mu, a) - coxReidAdjustment(x, mu, a) - d*d/(2*priorVar)
	}, lo, hi))
}

// maximize1D finds the maximizer of f on [lo, hi]: a coarse grid search
// followed by Nelder-Mead refinement from the best grid point.
func maximize1D(f func(float64) float64, lo, hi float64) float64 {
	const gridSize = 41

	best, bestF := lo, math.Inf(-1)
	for i := 0; i < gridSize; i++ {
		v := lo + (hi-lo)*float64(i)/float64(gridSize-1)
		if fv := f(v); fv > bestF && !math.IsNaN(fv) {
			best, bestF = v, fv
		}
	}
	if math.IsInf(bestF, -1) {
		return best
	}

	step := (hi - lo) / float64(gridSize-1)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := clamp(x[0], lo, hi)
			d := x[0] - v
			fv := f(v)
			if math.IsNaN(fv) {
				return -bestF + 1e6
			}
			return -fv + 1e3*d*d
		},
	}
	settings := &optimize.Settings{FuncEvaluations: 200}
	// Hitting the evaluation limit still leaves a usable location.
	res, _ := optimize.Minimize(problem, []float64{best}, settings, &optimize.NelderMead{SimplexSize: step})
	if res == nil || len(res.X) == 0 {
		return best
	}

	refined := clamp(res.X[0], lo, hi)
	if f(refined) > bestF {
		return refined
	}
	return best
}

// fitTrend fits alpha = a0 + a1/mean by iteratively reweighted regression on
// the gene-wise estimates, discarding genes whose estimate is far from the
// current fit. It falls back to the mean dispersion.
func fitTrend(baseMean, geneWise []float64, opts Options) Trend {
	type point struct{ mean, disp float64 }

	all := make([]point, 0, len(baseMean))
	for i, m := range baseMean {
		d := geneWise[i]
		if m <= 0 || math.IsNaN(d) {
			continue
		}
		all = append(all, point{m, d})
	}

	meanOnly := func(ps []point) Trend {
		if len(ps) == 0 {
			return Trend{A0: opts.MinDispersion, MeanOnly: true}
		}
		sum := 0.0
		for _, p := range ps {
			sum += p.disp
		}
		return Trend{A0: math.Max(sum/float64(len(ps)), opts.MinDispersion), MeanOnly: true}
	}

	// Genes sitting on the lower bound carry no information about the trend.
	use := make([]point, 0, len(all))
	for _, p := range all {
		if p.disp >= 100*opts.MinDispersion {
			use = append(use, p)
		}
	}
	if len(use) < 3 {
		return meanOnly(all)
	}

	var t Trend
	for iter := 0; iter < 10; iter++ {
		xs := make([]float64, len(use))
		ys := make([]float64, len(use))
		for i, p := range use {
			xs[i] = 1 / p.mean
			ys[i] = p.disp
		}
		a0, a1 := stat.LinearRegression(xs, ys, nil, false)
		if math.IsNaN(a0) || math.IsNaN(a1) || a0 <= 0 || a1 < 0 {
			return meanOnly(all)
		}
		t = Trend{A0: a0, A1: a1}

		kept := make([]point, 0, len(use))
		for _, p := range use {
			ratio := p.disp / t.At(p.mean)
			if ratio > 1e-4 && ratio < 15 {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(use) {
			break
		}
		if len(kept) < 3 {
			return meanOnly(all)
		}
		use = kept
	}

	return t
}

// priorVariance estimates the variance of log dispersions around the trend,
// net of the sampling variance expected with dfResidual degrees of freedom.
func priorVariance(baseMean, geneWise []float64, trend Trend, dfResidual int, opts Options) float64 {
	const minPriorVar = 0.25

	resid := make([]float64, 0, len(baseMean))
	for i, m := range baseMean {
		if m <= 0 || geneWise[i] < 100*opts.MinDispersion {
			continue
		}
		resid = append(resid, math.Log(geneWise[i])-math.Log(trend.At(m)))
	}
	if len(resid) < 3 || dfResidual < 1 {
		return minPriorVar
	}

	med, err := stats.Median(resid)
	if err != nil {
		return minPriorVar
	}
	absDev := make([]float64, len(resid))
	for i, r := range resid {
		absDev[i] = math.Abs(r - med)
	}
	mad, err := stats.Median(absDev)
	if err != nil {
		return minPriorVar
	}
	mad *= 1.4826

	return math.Max(mad*mad-trigamma(float64(dfResidual)/2), minPriorVar)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// trigamma is the second derivative of log Gamma, via the recurrence to
// x >= 6 and the asymptotic expansion.
func trigamma(x float64) float64 {
	sum := 0.0
	for x < 6 {
		sum += 1 / (x * x)
		x++
	}
	x2 := 1 / (x * x)
	return sum + 1/x + x2/2 + (1.0/6-x2*(1.0/30-x2*(1.0/42-x2/30)))/(x*x*x)
}

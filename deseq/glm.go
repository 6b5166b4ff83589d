package deseq

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// glmFit is the result of fitting one gene's negative binomial GLM at a fixed
// dispersion.
type glmFit struct {
	// Beta are natural-log-scale coefficients.
	Beta      []float64
	Mu        []float64
	Cov       *mat.Dense
	Deviance  float64
	Converged bool
	Iter      int
}

const maxAbsBeta = 30

// fitGLM runs iteratively reweighted least squares for
// log(mu_j) = log(s_j) + x_j'beta with Var(y) = mu + alpha*mu^2.
func fitGLM(y, sizeFactors []float64, x *mat.Dense, alpha float64, opts Options) glmFit {
	n, p := x.Dims()
	logSF := make([]float64, n)
	for j, s := range sizeFactors {
		logSF[j] = math.Log(s)
	}

	// Start from least squares on the log of normalized counts.
	z := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		z.SetVec(j, math.Log(y[j]/sizeFactors[j]+0.1))
	}
	beta := solveWeighted(x, ones(n), z, opts.Ridge)
	if beta == nil {
		beta = mat.NewVecDense(p, nil)
	}

	mu := make([]float64, n)
	w := make([]float64, n)
	eta := mat.NewVecDense(n, nil)
	out := glmFit{Deviance: math.Inf(1)}

	updateMu := func() {
		eta.MulVec(x, beta)
		for j := 0; j < n; j++ {
			mu[j] = math.Max(math.Exp(eta.AtVec(j)+logSF[j]), opts.MinMu)
		}
	}
	updateMu()

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		out.Iter = iter
		for j := 0; j < n; j++ {
			w[j] = mu[j] / (1 + alpha*mu[j])
			z.SetVec(j, math.Log(mu[j])-logSF[j]+(y[j]-mu[j])/mu[j])
		}

		next := solveWeighted(x, w, z, opts.Ridge)
		if next == nil {
			break
		}
		beta = next

		diverged := false
		for k := 0; k < p; k++ {
			if math.Abs(beta.AtVec(k)) > maxAbsBeta {
				beta.SetVec(k, math.Copysign(maxAbsBeta, beta.AtVec(k)))
				diverged = true
			}
		}
		updateMu()

		dev := -2 * logLikNB(y, mu, alpha)
		change := math.Abs(dev-out.Deviance) / (math.Abs(dev) + 0.1)
		out.Deviance = dev
		if diverged {
			break
		}
		if change < opts.Tolerance {
			out.Converged = true
			break
		}
	}

	out.Beta = make([]float64, p)
	for k := range out.Beta {
		out.Beta[k] = beta.AtVec(k)
	}
	out.Mu = append([]float64(nil), mu...)
	if math.IsInf(out.Deviance, 1) {
		out.Deviance = -2 * logLikNB(y, mu, alpha)
	}

	// Covariance from the information matrix at the final weights.
	for j := 0; j < n; j++ {
		w[j] = mu[j] / (1 + alpha*mu[j])
	}
	info := weightedCrossprod(x, w, opts.Ridge)
	var cov mat.Dense
	var cond mat.Condition
	if err := cov.Inverse(info); err == nil || errors.As(err, &cond) {
		out.Cov = &cov
	}

	return out
}

// weightedCrossprod returns X'WX + ridge*I.
func weightedCrossprod(x *mat.Dense, w []float64, ridge float64) *mat.Dense {
	n, p := x.Dims()
	a := mat.NewDense(p, p, nil)
	for r := 0; r < p; r++ {
		for c := r; c < p; c++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += x.At(j, r) * w[j] * x.At(j, c)
			}
			if r == c {
				sum += ridge
			}
			a.Set(r, c, sum)
			a.Set(c, r, sum)
		}
	}
	return a
}

// solveWeighted solves (X'WX + ridge*I) beta = X'Wz. It returns nil if the
// system is singular.
func solveWeighted(x *mat.Dense, w []float64, z *mat.VecDense, ridge float64) *mat.VecDense {
	n, p := x.Dims()
	a := weightedCrossprod(x, w, ridge)

	b := mat.NewVecDense(p, nil)
	for k := 0; k < p; k++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += x.At(j, k) * w[j] * z.AtVec(j)
		}
		b.SetVec(k, sum)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		return nil
	}
	for k := 0; k < p; k++ {
		if v := beta.AtVec(k); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}

	return &beta
}

// logLikNB is the negative binomial log likelihood with mean mu and
// dispersion alpha (size 1/alpha).
func logLikNB(y, mu []float64, alpha float64) float64 {
	r := 1 / alpha
	lgR, _ := math.Lgamma(r)
	ll := 0.0
	for j := range y {
		lgYR, _ := math.Lgamma(y[j] + r)
		lgY1, _ := math.Lgamma(y[j] + 1)
		ll += lgYR - lgR - lgY1
		ll += -r * math.Log1p(mu[j]/r)
		ll += y[j] * (math.Log(mu[j]) - math.Log(r+mu[j]))
	}
	return ll
}

// coxReidAdjustment is 0.5*log det(X'WX), the Cox-Reid penalty on the
// profile likelihood.
func coxReidAdjustment(x *mat.Dense, mu []float64, alpha float64) float64 {
	w := make([]float64, len(mu))
	for j, m := range mu {
		w[j] = m / (1 + alpha*m)
	}
	logDet, sign := mat.LogDet(weightedCrossprod(x, w, 0))
	if sign <= 0 {
		return 0
	}
	return 0.5 * logDet
}

// Package deseq fits per-gene negative binomial generalized linear models to
// RNA-seq counts and tests contrasts between covariate levels.
//
// The Engine interface is the contract the pipeline depends on. The shipped
// NegativeBinomial engine follows the usual median-of-ratios normalization,
// shrunken dispersion estimates and Wald testing.
package deseq

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff/counts"
	"github.com/carbocation/rnadiff/samplemeta"
	"gonum.org/v1/gonum/mat"
)

// DataSet is the input to a fit: an aligned count matrix, its sample
// metadata and the design.
type DataSet struct {
	Counts  *counts.Matrix
	Meta    *samplemeta.Table
	Formula string

	// Reference maps factor names to their reference level.
	Reference map[string]string
}

// Engine fits a DataSet. Implementations must honor ctx cancellation between
// genes and must not modify the DataSet.
type Engine interface {
	Fit(ctx context.Context, ds *DataSet) (*Fit, error)
}

// Options tune the default engine.
type Options struct {
	// MinDispersion bounds dispersion estimates from below.
	MinDispersion float64

	// MinMu bounds fitted means from below inside IRLS.
	MinMu float64

	// Ridge is added to the diagonal of X'WX.
	Ridge float64

	MaxIterations int

	// Tolerance is the relative deviance change that ends IRLS.
	Tolerance float64

	// OutlierSD is how many prior standard deviations above the trend a
	// gene-wise dispersion must be to be kept instead of the shrunken value.
	OutlierSD float64
}

func DefaultOptions() Options {
	return Options{
		MinDispersion: 1e-8,
		MinMu:         0.5,
		Ridge:         1e-6,
		MaxIterations: 100,
		Tolerance:     1e-8,
		OutlierSD:     2,
	}
}

// NegativeBinomial is the default in-process Engine.
type NegativeBinomial struct {
	Options Options
}

var _ Engine = (*NegativeBinomial)(nil)

func NewNegativeBinomial() *NegativeBinomial {
	return &NegativeBinomial{Options: DefaultOptions()}
}

// Fit holds everything estimated for a DataSet. Per-gene slices are indexed
// like Genes.
type Fit struct {
	Genes   []string
	Samples []string
	Design  *Design

	SizeFactors []float64
	BaseMean    []float64
	BaseVar     []float64

	GeneWise    []float64
	TrendValues []float64
	Dispersions []float64
	Outlier     []bool
	Trend       Trend
	PriorVar    float64

	// Beta are natural-log-scale coefficients, one slice per gene, ordered
	// like Design.Names.
	Beta      [][]float64
	Cov       []*mat.Dense
	Deviance  []float64
	Converged []bool

	// AllZero marks genes with no reads, which are not tested.
	AllZero []bool

	values    [][]int
	meta      *samplemeta.Table
	reference map[string]string
	opts      Options
}

func (e *NegativeBinomial) Fit(ctx context.Context, ds *DataSet) (*Fit, error) {
	if ds == nil || ds.Counts == nil || ds.Meta == nil {
		return nil, fmt.Errorf("dataset needs counts and metadata")
	}
	if err := ds.Counts.Validate(); err != nil {
		return nil, pfx.Err(err)
	}
	if err := samplemeta.CheckAligned(ds.Counts, ds.Meta); err != nil {
		return nil, err
	}
	if ds.Counts.NGenes() == 0 {
		return nil, fmt.Errorf("no genes left to fit")
	}

	opts := e.Options
	if opts.MaxIterations == 0 {
		opts = DefaultOptions()
	}

	design, err := NewDesign(ds.Meta, ds.Formula, ds.Reference)
	if err != nil {
		return nil, err
	}

	sf, err := SizeFactors(ds.Counts.Values)
	if err != nil {
		return nil, pfx.Err(err)
	}

	nGenes := ds.Counts.NGenes()
	n, p := design.X.Dims()

	f := &Fit{
		Genes:       append([]string(nil), ds.Counts.Genes...),
		Samples:     append([]string(nil), ds.Counts.Samples...),
		Design:      design,
		SizeFactors: sf,
		GeneWise:    make([]float64, nGenes),
		TrendValues: make([]float64, nGenes),
		Dispersions: make([]float64, nGenes),
		Outlier:     make([]bool, nGenes),
		Beta:        make([][]float64, nGenes),
		Cov:         make([]*mat.Dense, nGenes),
		Deviance:    make([]float64, nGenes),
		Converged:   make([]bool, nGenes),
		AllZero:     make([]bool, nGenes),
		values:      ds.Counts.Values,
		meta:        ds.Meta,
		reference:   ds.Reference,
		opts:        opts,
	}
	f.BaseMean, f.BaseVar = meanVariance(f.NormalizedCounts())

	log.Printf("Fitting %d genes across %d samples with design %s (%d coefficients)\n", nGenes, n, ds.Formula, p)

	ys := make([][]float64, nGenes)
	mus := make([][]float64, nGenes)
	for i, row := range ds.Counts.Values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ys[i] = toFloat(row)
		if f.BaseMean[i] == 0 {
			f.AllZero[i] = true
			f.GeneWise[i] = math.NaN()
			continue
		}
		f.GeneWise[i], mus[i] = geneWiseDispersion(ys[i], sf, design.X, opts)
	}

	f.Trend = fitTrend(f.BaseMean, f.GeneWise, opts)
	f.PriorVar = priorVariance(f.BaseMean, f.GeneWise, f.Trend, n-p, opts)
	if f.Trend.MeanOnly {
		log.Printf("Dispersion trend: mean-only fit %.4g\n", f.Trend.A0)
	} else {
		log.Printf("Dispersion trend: %.4g + %.4g/mean; prior variance of log dispersion %.3g\n", f.Trend.A0, f.Trend.A1, f.PriorVar)
	}

	priorSD := math.Sqrt(f.PriorVar)
	nOutliers, nUnconverged := 0, 0
	for i := range ys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if f.AllZero[i] {
			f.TrendValues[i] = math.NaN()
			f.Dispersions[i] = math.NaN()
			f.Deviance[i] = math.NaN()
			f.Beta[i] = nanSlice(p)
			continue
		}

		trend := f.Trend.At(f.BaseMean[i])
		f.TrendValues[i] = trend

		disp := mapDispersion(ys[i], mus[i], design.X, trend, f.PriorVar, opts)
		if math.Log(f.GeneWise[i]) > math.Log(trend)+opts.OutlierSD*priorSD {
			disp = f.GeneWise[i]
			f.Outlier[i] = true
			nOutliers++
		}
		f.Dispersions[i] = disp

		glm := fitGLM(ys[i], sf, design.X, disp, opts)
		f.Beta[i] = glm.Beta
		f.Cov[i] = glm.Cov
		f.Deviance[i] = glm.Deviance
		f.Converged[i] = glm.Converged
		if !glm.Converged {
			nUnconverged++
		}
	}

	if nOutliers > 0 {
		log.Printf("%d genes kept their gene-wise dispersion as outliers above the trend\n", nOutliers)
	}
	if nUnconverged > 0 {
		log.Printf("%d genes did not converge within %d IRLS iterations\n", nUnconverged, opts.MaxIterations)
	}

	return f, nil
}

// NormalizedCounts returns counts divided by size factors, genes x samples.
func (f *Fit) NormalizedCounts() [][]float64 {
	return Normalize(f.values, f.SizeFactors)
}

func toFloat(row []int) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = float64(v)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

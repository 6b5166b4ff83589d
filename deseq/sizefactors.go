package deseq

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
	"github.com/carbocation/runningvariance"
	"github.com/montanaflynn/stats"
)

// SizeFactors computes median-of-ratios normalization factors, one per
// sample (column of values). Only genes with a positive count in every sample
// contribute to the geometric-mean reference.
func SizeFactors(values [][]int) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no genes to estimate size factors from")
	}
	nSamples := len(values[0])

	logGeoMeans := make([]float64, len(values))
	usable := 0
	for i, row := range values {
		sum := 0.0
		for _, v := range row {
			if v <= 0 {
				sum = math.Inf(-1)
				break
			}
			sum += math.Log(float64(v))
		}
		logGeoMeans[i] = sum / float64(nSamples)
		if !math.IsInf(sum, -1) {
			usable++
		}
	}

	if usable == 0 {
		return nil, fmt.Errorf("every gene has a zero count in at least one sample; size factors cannot be estimated")
	}

	out := make([]float64, nSamples)
	ratios := make([]float64, 0, usable)
	for j := 0; j < nSamples; j++ {
		ratios = ratios[:0]
		for i, row := range values {
			if math.IsInf(logGeoMeans[i], -1) {
				continue
			}
			ratios = append(ratios, math.Log(float64(row[j]))-logGeoMeans[i])
		}
		med, err := stats.Median(ratios)
		if err != nil {
			return nil, pfx.Err(err)
		}
		out[j] = math.Exp(med)
	}

	return out, nil
}

// Normalize divides every count by its sample's size factor.
func Normalize(values [][]int, sizeFactors []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v) / sizeFactors[j]
		}
	}
	return out
}

// meanVariance returns the per-gene mean and variance of normalized counts.
func meanVariance(normalized [][]float64) (means, variances []float64) {
	means = make([]float64, len(normalized))
	variances = make([]float64, len(normalized))
	for i, row := range normalized {
		rs := runningvariance.NewRunningStat()
		for _, v := range row {
			rs.Push(v)
		}
		means[i] = rs.Mean()
		sd := rs.StandardDeviation()
		variances[i] = sd * sd
	}
	return means, variances
}

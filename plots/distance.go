package plots

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SampleDistances computes Euclidean distances between samples (columns) of
// a genes x samples matrix.
func SampleDistances(values [][]float64) ([][]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no genes to compute sample distances from")
	}
	n := len(values[0])

	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = make([]float64, len(values))
	}
	for i, row := range values {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), n)
		}
		for j, v := range row {
			cols[j][i] = v
		}
	}

	out := make([][]float64, n)
	for a := range out {
		out[a] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			d := floats.Distance(cols[a], cols[b], 2)
			out[a][b], out[b][a] = d, d
		}
	}

	return out, nil
}

// CompleteLinkageOrder clusters items agglomeratively with complete linkage
// and returns the leaf order of the dendrogram. Ties merge the pair with the
// lowest indices first; within a merge the cluster holding the lower index
// goes left.
func CompleteLinkageOrder(dist [][]float64) []int {
	type cluster struct {
		members []int
		minIdx  int
	}

	clusters := make([]*cluster, len(dist))
	for i := range dist {
		clusters[i] = &cluster{members: []int{i}, minIdx: i}
	}

	linkage := func(a, b *cluster) float64 {
		max := math.Inf(-1)
		for _, i := range a.members {
			for _, j := range b.members {
				if dist[i][j] > max {
					max = dist[i][j]
				}
			}
		}
		return max
	}

	for len(clusters) > 1 {
		bestA, bestB, best := 0, 1, math.Inf(1)
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				if d := linkage(clusters[a], clusters[b]); d < best {
					bestA, bestB, best = a, b, d
				}
			}
		}

		left, right := clusters[bestA], clusters[bestB]
		if right.minIdx < left.minIdx {
			left, right = right, left
		}
		merged := &cluster{
			members: append(append([]int{}, left.members...), right.members...),
			minIdx:  left.minIdx,
		}

		next := make([]*cluster, 0, len(clusters)-1)
		for k, c := range clusters {
			if k != bestA && k != bestB {
				next = append(next, c)
			}
		}
		clusters = append(next, merged)

		// Keep clusters ordered by their lowest member so tie-breaking does
		// not depend on merge history.
		sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].minIdx < clusters[j].minIdx })
	}

	if len(clusters) == 0 {
		return nil
	}
	return clusters[0].members
}

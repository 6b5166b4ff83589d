package enrich

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/carbocation/rnadiff/table"
)

// RankedList is a gene list ordered by decreasing score.
type RankedList struct {
	Genes  []string
	Scores []float64
}

// NewRankedList sorts genes by decreasing score, breaking ties by gene name.
// Genes with a NaN score or a repeated name (after the first) are dropped.
func NewRankedList(genes []string, scores []float64) (*RankedList, error) {
	if len(genes) != len(scores) {
		return nil, fmt.Errorf("%d genes but %d scores", len(genes), len(scores))
	}

	type pair struct {
		gene  string
		score float64
	}
	seen := make(map[string]struct{}, len(genes))
	pairs := make([]pair, 0, len(genes))
	for i, g := range genes {
		if g == "" || math.IsNaN(scores[i]) {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		pairs = append(pairs, pair{g, scores[i]})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].gene < pairs[j].gene
	})

	out := &RankedList{Genes: make([]string, len(pairs)), Scores: make([]float64, len(pairs))}
	for i, p := range pairs {
		out.Genes[i], out.Scores[i] = p.gene, p.score
	}
	return out, nil
}

// Len is the number of ranked genes.
func (l *RankedList) Len() int { return len(l.Genes) }

// enrichmentScore is the weighted (p=1) Kolmogorov-Smirnov running-sum
// statistic for the hit positions, which must be sorted ascending. It returns
// the signed maximum deviation and its position.
func enrichmentScore(weights []float64, hits []int) (float64, int) {
	n, k := len(weights), len(hits)
	if k == 0 || k == n {
		return 0, 0
	}

	nr := 0.0
	for _, h := range hits {
		nr += math.Abs(weights[h])
	}
	missStep := 1 / float64(n-k)

	// All-zero weights degrade to the unweighted statistic.
	hitWeight := func(h int) float64 {
		if nr == 0 {
			return 1 / float64(k)
		}
		return math.Abs(weights[h]) / nr
	}

	best, bestPos := 0.0, 0
	cum := 0.0
	for i, h := range hits {
		misses := float64(h-i) * missStep

		// Just before the hit the running sum is at a local minimum.
		if low := cum - misses; math.Abs(low) > math.Abs(best) {
			best, bestPos = low, h-1
		}
		cum += hitWeight(h)
		if high := cum - misses; math.Abs(high) > math.Abs(best) {
			best, bestPos = high, h
		}
	}

	return best, bestPos
}

// GSEA scores every gene set against the ranked list with a gene-set
// permutation null. Sets of equal size share one null distribution.
func GSEA(ctx context.Context, ranked *RankedList, sets []GeneSet, opts Options) ([]*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Permutations < 1 {
		return nil, fmt.Errorf("GSEA needs at least one permutation, got %d", opts.Permutations)
	}

	n := ranked.Len()
	position := make(map[string]int, n)
	for i, g := range ranked.Genes {
		position[g] = i
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	nulls := make(map[int][]float64)
	scratch := make([]int, n)
	for i := range scratch {
		scratch[i] = i
	}

	nullFor := func(k int) []float64 {
		if null, exists := nulls[k]; exists {
			return null
		}
		null := make([]float64, opts.Permutations)
		hits := make([]int, k)
		for p := range null {
			// Partial Fisher-Yates draw of k distinct positions.
			for i := 0; i < k; i++ {
				j := i + rng.Intn(n-i)
				scratch[i], scratch[j] = scratch[j], scratch[i]
			}
			copy(hits, scratch[:k])
			sort.Ints(hits)
			null[p], _ = enrichmentScore(ranked.Scores, hits)
		}
		nulls[k] = null
		return null
	}

	// Visit sets in ID order so the shared random stream is reproducible
	// regardless of input order.
	ordered := make([]GeneSet, len(sets))
	copy(ordered, sets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	out := make([]*Result, 0)
	for _, s := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hits := make([]int, 0, len(s.Genes))
		for _, g := range s.Genes {
			if pos, ok := position[g]; ok {
				hits = append(hits, pos)
			}
		}
		k := len(hits)
		if k < opts.MinSetSize || k > opts.MaxSetSize || k >= n {
			continue
		}
		sort.Ints(hits)

		es, pos := enrichmentScore(ranked.Scores, hits)
		nes, pval := normalize(es, nullFor(k))

		out = append(out, &Result{
			ID:              s.ID,
			Description:     s.Description,
			SetSize:         k,
			EnrichmentScore: table.Float(es),
			NES:             table.Float(nes),
			PValue:          table.Float(pval),
			Rank:            pos + 1,
			Count:           k,
			Genes:           strings.Join(leadingEdge(ranked, hits, es, pos), GeneSeparator),
		})
	}

	return adjustAndFilter(out, opts.PAdjustCutoff), nil
}

// normalize divides es by the mean of the same-signed null scores and
// computes the one-sided empirical p-value.
func normalize(es float64, null []float64) (nes, pval float64) {
	var sum float64
	var same, extreme int
	for _, v := range null {
		if es >= 0 && v >= 0 {
			same++
			sum += v
			if v >= es {
				extreme++
			}
		} else if es < 0 && v < 0 {
			same++
			sum += v
			if v <= es {
				extreme++
			}
		}
	}

	if same == 0 || sum == 0 {
		return math.NaN(), 1
	}

	mean := math.Abs(sum / float64(same))
	return es / mean, float64(extreme+1) / float64(same+1)
}

// leadingEdge returns the hit genes at or before the peak for a positive
// score, or after it for a negative one, in rank order.
func leadingEdge(ranked *RankedList, hits []int, es float64, pos int) []string {
	out := make([]string, 0)
	for _, h := range hits {
		if (es >= 0 && h <= pos) || (es < 0 && h > pos) {
			out = append(out, ranked.Genes[h])
		}
	}
	return out
}

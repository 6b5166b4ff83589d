package enrich

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/carbocation/rnadiff/deseq"
	"github.com/carbocation/rnadiff/table"
	fet "github.com/glycerine/golang-fisher-exact"
)

// Options control both enrichment modes.
type Options struct {
	MinSetSize int
	MaxSetSize int

	// PAdjustCutoff keeps results with p.adjust below it. Use 1 to keep
	// everything.
	PAdjustCutoff float64

	// Permutations and Seed drive the GSEA null distribution.
	Permutations int
	Seed         int64
}

func DefaultOptions() Options {
	return Options{
		MinSetSize:    10,
		MaxSetSize:    500,
		PAdjustCutoff: 0.05,
		Permutations:  1000,
		Seed:          1,
	}
}

func (o Options) validate() error {
	if o.MinSetSize < 1 || o.MaxSetSize < o.MinSetSize {
		return fmt.Errorf("invalid gene set size bounds [%d, %d]", o.MinSetSize, o.MaxSetSize)
	}
	if o.PAdjustCutoff <= 0 {
		return fmt.Errorf("p.adjust cutoff must be positive, got %v", o.PAdjustCutoff)
	}
	return nil
}

// ORA tests each gene set for over-representation among the selected genes
// with a one-sided Fisher exact test. The universe is the tested genes that
// belong to at least one set; selected genes outside it are ignored.
func ORA(selected, universe []string, sets []GeneSet, opts Options) ([]*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	tested := toSet(universe)
	annotated := make(map[string]struct{})
	for _, s := range sets {
		for _, g := range s.Genes {
			if _, ok := tested[g]; ok {
				annotated[g] = struct{}{}
			}
		}
	}

	query := make(map[string]struct{})
	for _, g := range selected {
		if _, ok := annotated[g]; ok {
			query[g] = struct{}{}
		}
	}

	N, n := len(annotated), len(query)
	if n == 0 {
		log.Printf("ORA: none of the %d selected genes are annotated in the universe\n", len(selected))
		return []*Result{}, nil
	}

	out := make([]*Result, 0)
	for _, s := range sets {
		var overlap []string
		M := 0
		for _, g := range s.Genes {
			if _, ok := annotated[g]; !ok {
				continue
			}
			M++
			if _, ok := query[g]; ok {
				overlap = append(overlap, g)
			}
		}
		if M < opts.MinSetSize || M > opts.MaxSetSize || len(overlap) == 0 {
			continue
		}

		k := len(overlap)
		_, _, rightp, _ := fet.FisherExactTest(k, n-k, M-k, N-n-M+k)

		out = append(out, &Result{
			ID:              s.ID,
			Description:     s.Description,
			SetSize:         M,
			EnrichmentScore: table.NaN(),
			NES:             table.NaN(),
			GeneRatio:       fmt.Sprintf("%d/%d", k, n),
			BgRatio:         fmt.Sprintf("%d/%d", M, N),
			PValue:          table.Float(math.Min(rightp, 1)),
			Count:           k,
			Genes:           strings.Join(overlap, GeneSeparator),
		})
	}

	return adjustAndFilter(out, opts.PAdjustCutoff), nil
}

// adjustAndFilter fills PAdjust, keeps results under the cutoff and sorts
// them.
func adjustAndFilter(rs []*Result, cutoff float64) []*Result {
	pvals := make([]float64, len(rs))
	for i, r := range rs {
		pvals[i] = float64(r.PValue)
	}
	for i, q := range deseq.AdjustBH(pvals) {
		rs[i].PAdjust = table.Float(q)
	}

	kept := make([]*Result, 0, len(rs))
	for _, r := range rs {
		if !r.PAdjust.IsNA() && float64(r.PAdjust) < cutoff {
			kept = append(kept, r)
		}
	}
	SortResults(kept)

	return kept
}

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

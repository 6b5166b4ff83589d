package enrich

import (
	"io"
	"math"
	"sort"
	"strings"

	"github.com/carbocation/rnadiff/table"
)

// Modes of enrichment analysis.
const (
	ModeGSEA = "gsea"
	ModeORA  = "ora"
)

// GeneSeparator joins contributing genes in a result cell.
const GeneSeparator = "/"

// Result is one enriched term. GSEA fills EnrichmentScore, NES and Rank; ORA
// fills GeneRatio, BgRatio and Count. Genes lists the core enrichment (GSEA)
// or the overlapping genes (ORA).
type Result struct {
	ID              string      `csv:"ID"`
	Description     string      `csv:"Description"`
	SetSize         int         `csv:"setSize"`
	EnrichmentScore table.Float `csv:"enrichmentScore"`
	NES             table.Float `csv:"NES"`
	GeneRatio       string      `csv:"GeneRatio"`
	BgRatio         string      `csv:"BgRatio"`
	PValue          table.Float `csv:"pvalue"`
	PAdjust         table.Float `csv:"p.adjust"`
	Rank            int         `csv:"rank"`
	Count           int         `csv:"Count"`
	Genes           string      `csv:"genes"`
}

// GeneList splits the Genes cell.
func (r *Result) GeneList() []string {
	if r.Genes == "" {
		return nil
	}
	return strings.Split(r.Genes, GeneSeparator)
}

// SortResults orders by adjusted p, then raw p, then ID.
func SortResults(rs []*Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if cmp := compareNA(float64(a.PAdjust), float64(b.PAdjust)); cmp != 0 {
			return cmp < 0
		}
		if cmp := compareNA(float64(a.PValue), float64(b.PValue)); cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
}

// compareNA orders numbers ascending with NaN last.
func compareNA(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// WriteResults exports results as CSV.
func WriteResults(w io.Writer, rs []*Result) error {
	return table.Write(w, &rs)
}

// ReadResults loads results written by WriteResults.
func ReadResults(r io.Reader) ([]*Result, error) {
	rs := make([]*Result, 0)
	if err := table.Read(r, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// Edge is one (term, gene) pair of an enrichment result.
type Edge struct {
	ID          string `csv:"ID"`
	Description string `csv:"Description"`
	Gene        string `csv:"gene"`
}

// Edges explodes each result's gene cell into one row per gene.
func Edges(rs []*Result) []*Edge {
	out := make([]*Edge, 0)
	for _, r := range rs {
		for _, g := range r.GeneList() {
			if g == "" {
				continue
			}
			out = append(out, &Edge{ID: r.ID, Description: r.Description, Gene: g})
		}
	}
	return out
}

// WriteEdges exports an edge table as CSV.
func WriteEdges(w io.Writer, es []*Edge) error {
	return table.Write(w, &es)
}

// Simplify drops redundant terms. For every pair whose similarity exceeds
// cutoff, the term with the larger adjusted p-value (on ties, the larger ID)
// is removed. The input order of the survivors is kept.
func Simplify(rs []*Result, sim Similarity, cutoff float64) []*Result {
	remove := make(map[string]struct{})
	for i := 0; i < len(rs); i++ {
		for j := i + 1; j < len(rs); j++ {
			a, b := rs[i], rs[j]
			if a.ID == b.ID || !(sim.Similarity(a.ID, b.ID) > cutoff) {
				continue
			}
			remove[worse(a, b).ID] = struct{}{}
		}
	}

	out := make([]*Result, 0, len(rs)-len(remove))
	for _, r := range rs {
		if _, drop := remove[r.ID]; !drop {
			out = append(out, r)
		}
	}
	return out
}

func worse(a, b *Result) *Result {
	switch compareNA(float64(a.PAdjust), float64(b.PAdjust)) {
	case -1:
		return b
	case 1:
		return a
	}
	if a.ID > b.ID {
		return a
	}
	return b
}

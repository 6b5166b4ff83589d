// Package results turns per-gene test statistics into classified, annotated
// result tables.
package results

import (
	"io"
	"math"
	"sort"

	"github.com/carbocation/rnadiff/counts"
	"github.com/carbocation/rnadiff/deseq"
	"github.com/carbocation/rnadiff/table"
)

// Status is the direction call for one gene.
type Status string

const (
	Up             Status = "Up-regulated"
	Down           Status = "Down-regulated"
	NotSignificant Status = "Not significant"
)

// Thresholds decide significance. A gene is significant when its adjusted
// p-value is below Alpha and its absolute log2 fold change exceeds
// LFCCutoff.
type Thresholds struct {
	Alpha     float64
	LFCCutoff float64
}

// Fold-change cutoffs used across runs, in log2 space.
var (
	LFCCutoff1_5 = math.Log2(1.5)
	LFCCutoff3   = math.Log2(3)
)

func DefaultThresholds() Thresholds {
	return Thresholds{Alpha: 0.1, LFCCutoff: LFCCutoff1_5}
}

// Classify applies the thresholds. Missing values are never significant.
func Classify(lfc, padj float64, th Thresholds) (bool, Status) {
	if math.IsNaN(lfc) || math.IsNaN(padj) || !(padj < th.Alpha) {
		return false, NotSignificant
	}
	switch {
	case lfc > th.LFCCutoff:
		return true, Up
	case lfc < -th.LFCCutoff:
		return true, Down
	}
	return false, NotSignificant
}

// Row is one line of a differential expression table.
type Row struct {
	GeneID         string      `csv:"gene_id"`
	Symbol         string      `csv:"symbol"`
	BaseMean       table.Float `csv:"baseMean"`
	Log2FoldChange table.Float `csv:"log2FoldChange"`
	LfcSE          table.Float `csv:"lfcSE"`
	Stat           table.Float `csv:"stat"`
	PValue         table.Float `csv:"pvalue"`
	PAdj           table.Float `csv:"padj"`
	Significant    bool        `csv:"significant"`
	Status         Status      `csv:"status"`
}

// Label is the symbol when known, else the gene ID.
func (r *Row) Label() string {
	if r.Symbol != "" {
		return r.Symbol
	}
	return r.GeneID
}

// Build converts test results into classified rows sorted by adjusted
// p-value. ids, when non-nil, gives the stable identifier of each result (for
// fits run on renamed genes); symbols, when non-nil, supplies gene symbols.
// Genes without a symbol keep a blank Symbol.
func Build(res []deseq.Result, ids []string, symbols counts.Symbolizer, th Thresholds) []*Row {
	out := make([]*Row, len(res))
	for i, r := range res {
		row := &Row{
			GeneID:         r.Gene,
			BaseMean:       table.Float(r.BaseMean),
			Log2FoldChange: table.Float(r.Log2FoldChange),
			LfcSE:          table.Float(r.LfcSE),
			Stat:           table.Float(r.Stat),
			PValue:         table.Float(r.PValue),
			PAdj:           table.Float(r.PAdj),
		}
		if ids != nil {
			row.GeneID = ids[i]
		}
		if symbols != nil {
			if sym, ok := symbols.Symbol(row.GeneID); ok {
				row.Symbol = sym
			}
		}
		row.Significant, row.Status = Classify(r.Log2FoldChange, r.PAdj, th)
		out[i] = row
	}

	SortByPAdj(out)
	return out
}

// Reclassify returns copies of rows classified under new thresholds.
func Reclassify(rows []*Row, th Thresholds) []*Row {
	out := make([]*Row, len(rows))
	for i, r := range rows {
		c := *r
		c.Significant, c.Status = Classify(float64(r.Log2FoldChange), float64(r.PAdj), th)
		out[i] = &c
	}
	return out
}

// SortByPAdj orders rows by adjusted p-value, missing values last, then by
// raw p-value and gene ID.
func SortByPAdj(rows []*Row) {
	less := func(a, b float64) (bool, bool) {
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return false, false
		case math.IsNaN(a):
			return false, true
		case math.IsNaN(b):
			return true, true
		case a != b:
			return a < b, true
		}
		return false, false
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if l, decided := less(float64(rows[i].PAdj), float64(rows[j].PAdj)); decided {
			return l
		}
		if l, decided := less(float64(rows[i].PValue), float64(rows[j].PValue)); decided {
			return l
		}
		return rows[i].GeneID < rows[j].GeneID
	})
}

// Significant returns the rows flagged significant in either direction.
func Significant(rows []*Row) []*Row {
	return filter(rows, func(r *Row) bool { return r.Significant })
}

// UpRegulated returns the significant rows with positive fold change.
func UpRegulated(rows []*Row) []*Row {
	return filter(rows, func(r *Row) bool { return r.Status == Up })
}

// DownRegulated returns the significant rows with negative fold change.
func DownRegulated(rows []*Row) []*Row {
	return filter(rows, func(r *Row) bool { return r.Status == Down })
}

func filter(rows []*Row, keep func(*Row) bool) []*Row {
	out := make([]*Row, 0)
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts rows by outcome.
type Summary struct {
	Tested      int
	Untested    int
	Significant int
	Up          int
	Down        int
}

func Summarize(rows []*Row) Summary {
	var s Summary
	for _, r := range rows {
		if r.PAdj.IsNA() {
			s.Untested++
		} else {
			s.Tested++
		}
		if r.Significant {
			s.Significant++
		}
		switch r.Status {
		case Up:
			s.Up++
		case Down:
			s.Down++
		}
	}
	return s
}

// PValues returns the non-missing raw p-values.
func PValues(rows []*Row) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !r.PValue.IsNA() {
			out = append(out, float64(r.PValue))
		}
	}
	return out
}

// Write exports rows as CSV.
func Write(w io.Writer, rows []*Row) error {
	return table.Write(w, &rows)
}

// Read loads rows written by Write.
func Read(r io.Reader) ([]*Row, error) {
	rows := make([]*Row, 0)
	if err := table.Read(r, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

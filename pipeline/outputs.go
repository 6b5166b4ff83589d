package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/carbocation/rnadiff/config"
	"github.com/carbocation/rnadiff/counts"
	"github.com/carbocation/rnadiff/deseq"
	"github.com/carbocation/rnadiff/export"
	"github.com/carbocation/rnadiff/plots"
	"github.com/carbocation/rnadiff/results"
	"github.com/carbocation/rnadiff/samplemeta"
	"github.com/carbocation/rnadiff/table"
)

// Output paths, relative to the output root.
const (
	NormalizedCountsPath = "counts/normalized_counts.csv"
	VSTCountsPath        = "counts/vst_counts.csv"
	SizeFactorsPath      = "counts/size_factors.csv"
	HeatmapPath          = "plots/sample_distance_heatmap.svg"
)

func dePath(contrast, subset string) string {
	return fmt.Sprintf("de/%s_%s.csv", contrast, subset)
}

func volcanoPath(contrast string) string {
	return fmt.Sprintf("plots/%s_volcano.svg", contrast)
}

func (r *run) writeCounts(ctx context.Context, fit *deseq.Fit) error {
	if err := export.WriteFile(ctx, r.sink, NormalizedCountsPath, func(w io.Writer) error {
		return counts.WriteFloatTable(w, ',', counts.GeneIDColumn, fit.Genes, fit.Samples, fit.NormalizedCounts())
	}); err != nil {
		return err
	}

	if err := export.WriteFile(ctx, r.sink, VSTCountsPath, func(w io.Writer) error {
		return counts.WriteFloatTable(w, ',', counts.GeneIDColumn, fit.Genes, fit.Samples, fit.VST())
	}); err != nil {
		return err
	}

	type sizeFactor struct {
		Sample     string      `csv:"sample"`
		SizeFactor table.Float `csv:"size_factor"`
	}
	sf := make([]*sizeFactor, len(fit.Samples))
	for j, s := range fit.Samples {
		sf[j] = &sizeFactor{Sample: s, SizeFactor: table.Float(fit.SizeFactors[j])}
	}
	return export.WriteFile(ctx, r.sink, SizeFactorsPath, func(w io.Writer) error {
		return table.Write(w, &sf)
	})
}

func (r *run) writeHeatmap(ctx context.Context, fit *deseq.Fit, meta *samplemeta.Table) error {
	dist, err := plots.SampleDistances(fit.VST())
	if err != nil {
		return err
	}

	annotations := make([]plots.Annotation, 0, len(r.cfg.Annotations))
	for _, name := range r.cfg.Annotations {
		values, err := meta.Column(name)
		if err != nil {
			return err
		}
		levels, err := meta.Levels(name, lookupReference(r.cfg.Reference, name))
		if err != nil {
			return err
		}
		annotations = append(annotations, plots.Annotation{Name: name, Values: values, Levels: levels})
	}

	return export.WriteFile(ctx, r.sink, HeatmapPath, func(w io.Writer) error {
		return plots.DistanceHeatmap(w, fit.Samples, dist, plots.HeatmapOptions{
			Title:       "Sample-to-sample distances",
			Annotations: annotations,
			Palette:     r.palette,
		})
	})
}

func (r *run) contrast(ctx context.Context, fit *deseq.Fit, m *counts.Matrix, ct config.Contrast) ([]*results.Row, error) {
	log.Printf("Testing %s: %s %s vs %s\n", ct.Name, ct.Factor, ct.Numerator, ct.Denominator)

	res, err := fit.Contrast(ct.Factor, ct.Numerator, ct.Denominator)
	if err != nil {
		return nil, err
	}

	th := results.Thresholds{Alpha: r.cfg.Alpha, LFCCutoff: ct.LFCCutoff}
	rows := results.Build(res, m.Accessions, r.symbolizer(), th)

	s := results.Summarize(rows)
	r.report.Contrasts[ct.Name] = s
	log.Printf("%s: %d tested, %d untested, %d significant (%d up, %d down) at padj < %g and |log2FC| > %.3g\n",
		ct.Name, s.Tested, s.Untested, s.Significant, s.Up, s.Down, th.Alpha, th.LFCCutoff)
	logPValueHistogram(ct.Name, results.PValues(rows))

	subsets := []struct {
		name string
		rows []*results.Row
	}{
		{"all", rows},
		{"significant", results.Significant(rows)},
		{"up", results.UpRegulated(rows)},
	}
	for _, sub := range subsets {
		sub := sub
		if err := export.WriteFile(ctx, r.sink, dePath(ct.Name, sub.name), func(w io.Writer) error {
			return results.Write(w, sub.rows)
		}); err != nil {
			return nil, err
		}
	}

	if err := export.WriteFile(ctx, r.sink, volcanoPath(ct.Name), func(w io.Writer) error {
		return plots.Volcano(w, rows, plots.VolcanoOptions{
			Title:       fmt.Sprintf("%s vs %s", ct.Numerator, ct.Denominator),
			Thresholds:  th,
			LabelCutoff: r.cfg.LabelCutoff,
			Palette:     r.palette,
		})
	}); err != nil {
		return nil, err
	}

	if r.db != nil {
		if err := r.db.WriteDE(ct.Name, rows); err != nil {
			return nil, err
		}
	}

	return rows, nil
}

func (r *run) lrt(ctx context.Context, fit *deseq.Fit, m *counts.Matrix) error {
	log.Printf("Likelihood ratio test: %s against %s\n", r.cfg.Design, r.cfg.ReducedDesign)

	res, err := fit.LRT(ctx, r.cfg.ReducedDesign)
	if err != nil {
		return err
	}

	// Direction is not defined for an LRT, so only the adjusted p-value
	// threshold applies.
	rows := results.Build(res, m.Accessions, r.symbolizer(), results.Thresholds{Alpha: r.cfg.Alpha, LFCCutoff: 0})
	r.report.Contrasts[config.LRTName] = results.Summarize(rows)

	return export.WriteFile(ctx, r.sink, dePath(config.LRTName, "all"), func(w io.Writer) error {
		return results.Write(w, rows)
	})
}

func logPValueHistogram(name string, pvalues []float64) {
	var b strings.Builder
	if err := plots.PValueHistogram(&b, pvalues, 20); err != nil {
		log.Printf("%s: could not summarize p-values: %v\n", name, err)
		return
	}
	log.Printf("%s p-value distribution:\n%s", name, b.String())
}

func lookupReference(ref map[string]string, factor string) string {
	if v, ok := ref[factor]; ok {
		return v
	}
	for k, v := range ref {
		if strings.EqualFold(k, factor) {
			return v
		}
	}
	return ""
}

// geneKey picks the identifier matched against gene sets.
func geneKey(row *results.Row, key string) string {
	if key == "id" {
		return row.GeneID
	}
	return row.Label()
}

func finite(v table.Float) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

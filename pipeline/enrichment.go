package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/carbocation/rnadiff"
	"github.com/carbocation/rnadiff/config"
	"github.com/carbocation/rnadiff/enrich"
	"github.com/carbocation/rnadiff/export"
	"github.com/carbocation/rnadiff/plots"
	"github.com/carbocation/rnadiff/results"
)

// geneSets bundles the loaded sets with the similarity used to simplify
// results.
type geneSets struct {
	sets []enrich.GeneSet
	sim  enrich.Similarity
}

func enrichmentPath(contrast, mode, suffix string) string {
	return fmt.Sprintf("enrichment/%s_%s%s.csv", contrast, mode, suffix)
}

func barplotPath(contrast, mode string) string {
	return fmt.Sprintf("plots/%s_%s_barplot.svg", contrast, mode)
}

func (r *run) loadGeneSets(ctx context.Context) (*geneSets, error) {
	e := r.cfg.Enrichment
	if len(e.Modes) == 0 {
		return nil, nil
	}

	rc, err := rnadiff.OpenInput(ctx, e.GMTPath, r.opts.Storage)
	if err != nil {
		return nil, err
	}
	sets, err := enrich.ReadGMT(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.GMTPath, err)
	}
	log.Printf("Loaded %d gene sets from %s\n", len(sets), e.GMTPath)

	out := &geneSets{}
	if e.OBOPath != "" {
		rc, err := rnadiff.OpenInput(ctx, e.OBOPath, r.opts.Storage)
		if err != nil {
			return nil, err
		}
		o, err := enrich.ReadOBO(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.OBOPath, err)
		}
		log.Printf("Loaded %d ontology terms from %s\n", o.Len(), e.OBOPath)

		if sets, err = enrich.FilterNamespace(sets, o, e.Ontology); err != nil {
			return nil, err
		}
		log.Printf("%d gene sets belong to ontology %s\n", len(sets), e.Ontology)
		out.sim = enrich.NewWang(o)
	} else {
		out.sim = enrich.NewJaccard(sets)
	}
	out.sets = sets

	return out, nil
}

func (r *run) enrich(ctx context.Context, ct config.Contrast, rows []*results.Row, gs *geneSets) error {
	e := r.cfg.Enrichment
	opts := enrich.Options{
		MinSetSize:    e.MinSetSize,
		MaxSetSize:    e.MaxSetSize,
		PAdjustCutoff: e.PAdjustCutoff,
		Permutations:  e.Permutations,
		Seed:          e.Seed,
	}

	for _, mode := range []string{enrich.ModeGSEA, enrich.ModeORA} {
		if !e.HasMode(mode) {
			continue
		}

		var rs []*enrich.Result
		var err error

		switch mode {
		case enrich.ModeGSEA:
			genes := make([]string, 0, len(rows))
			scores := make([]float64, 0, len(rows))
			for _, row := range rows {
				if finite(row.Log2FoldChange) {
					genes = append(genes, geneKey(row, e.GeneKey))
					scores = append(scores, float64(row.Log2FoldChange))
				}
			}
			ranked, err := enrich.NewRankedList(genes, scores)
			if err != nil {
				return err
			}
			rs, err = enrich.GSEA(ctx, ranked, gs.sets, opts)
			if err != nil {
				return err
			}

		case enrich.ModeORA:
			var selected []*results.Row
			switch e.ORADirection {
			case "up":
				selected = results.UpRegulated(rows)
			case "down":
				selected = results.DownRegulated(rows)
			default:
				selected = results.Significant(rows)
			}
			universe := make([]string, 0, len(rows))
			for _, row := range rows {
				if !row.PAdj.IsNA() {
					universe = append(universe, geneKey(row, e.GeneKey))
				}
			}
			query := make([]string, len(selected))
			for i, row := range selected {
				query[i] = geneKey(row, e.GeneKey)
			}
			rs, err = enrich.ORA(query, universe, gs.sets, opts)
			if err != nil {
				return err
			}
		}

		simplified := enrich.Simplify(rs, gs.sim, e.SimplifyCutoff)
		edges := enrich.Edges(simplified)
		r.report.Enrichment[ct.Name+"_"+mode] = len(rs)
		log.Printf("%s %s: %d enriched terms, %d after simplification, %d edges\n", ct.Name, mode, len(rs), len(simplified), len(edges))

		if err := export.WriteFile(ctx, r.sink, enrichmentPath(ct.Name, mode, ""), func(w io.Writer) error {
			return enrich.WriteResults(w, rs)
		}); err != nil {
			return err
		}
		if err := export.WriteFile(ctx, r.sink, enrichmentPath(ct.Name, mode, "_simplified"), func(w io.Writer) error {
			return enrich.WriteResults(w, simplified)
		}); err != nil {
			return err
		}
		if err := export.WriteFile(ctx, r.sink, enrichmentPath(ct.Name, mode, "_edges"), func(w io.Writer) error {
			return enrich.WriteEdges(w, edges)
		}); err != nil {
			return err
		}

		if len(simplified) > 0 {
			if err := export.WriteFile(ctx, r.sink, barplotPath(ct.Name, mode), func(w io.Writer) error {
				return plots.EnrichmentBarplot(w, simplified, e.BarplotTop, fmt.Sprintf("%s %s", ct.Name, mode))
			}); err != nil {
				return err
			}
		}

		if r.db != nil {
			if err := r.db.WriteEnrichment(ct.Name, mode, false, rs); err != nil {
				return err
			}
			if err := r.db.WriteEnrichment(ct.Name, mode, true, simplified); err != nil {
				return err
			}
			if err := r.db.WriteEdges(ct.Name, mode, edges); err != nil {
				return err
			}
		}
	}

	return nil
}

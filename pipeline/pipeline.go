// Package pipeline runs the differential expression workflow end to end:
// load, align, fit, extract, plot, enrich and export.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff/config"
	"github.com/carbocation/rnadiff/counts"
	"github.com/carbocation/rnadiff/deseq"
	"github.com/carbocation/rnadiff/export"
	"github.com/carbocation/rnadiff/idmap"
	"github.com/carbocation/rnadiff/plots"
	"github.com/carbocation/rnadiff/results"
	"github.com/carbocation/rnadiff/samplemeta"
)

// Options carry the collaborators of a run.
type Options struct {
	// Engine fits the model. Defaults to deseq.NewNegativeBinomial().
	Engine deseq.Engine

	// Storage is required only for gs:// inputs or outputs.
	Storage *storage.Client
}

// Report summarizes a finished run.
type Report struct {
	InputGenes  int
	FittedGenes int
	Samples     int
	Contrasts   map[string]results.Summary
	Enrichment  map[string]int
}

// run carries the state shared between stages.
type run struct {
	cfg     config.JSONConfig
	opts    Options
	sink    export.Sink
	db      *export.DB
	symbols *idmap.Map
	palette *plots.Palette
	report  *Report
}

// Run executes every stage in order. Any error aborts the run; outputs
// written before the failure are left in place.
func Run(ctx context.Context, cfg config.JSONConfig, opts Options) (*Report, error) {
	if opts.Engine == nil {
		opts.Engine = deseq.NewNegativeBinomial()
	}

	r := &run{
		cfg:    cfg,
		opts:   opts,
		report: &Report{Contrasts: make(map[string]results.Summary), Enrichment: make(map[string]int)},
	}

	var err error
	if r.palette, err = plots.NewPalette(cfg.Palette); err != nil {
		return nil, err
	}
	if r.sink, err = export.NewSink(cfg.OutputPath, opts.Storage); err != nil {
		return nil, err
	}
	if cfg.SQLitePath != "" {
		if r.db, err = export.OpenSQLite(cfg.SQLitePath); err != nil {
			return nil, err
		}
		defer r.db.Close()
	}

	// 1. Load
	m, meta, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	r.report.InputGenes = m.NGenes()

	// 2. Align
	aligned, err := samplemeta.Align(m, meta)
	if err != nil {
		return nil, err
	}
	r.report.Samples = aligned.NSamples()
	log.Printf("Aligned %d samples between counts and metadata\n", aligned.NSamples())

	filtered := aligned.FilterLowCounts(cfg.MinCount, cfg.MinSamples)
	log.Printf("Kept %d of %d genes with a count of at least %d in at least %d samples\n", filtered.NGenes(), aligned.NGenes(), cfg.MinCount, cfg.MinSamples)
	if filtered.NGenes() == 0 {
		return nil, fmt.Errorf("no genes pass the low-count filter (min_count %d, min_samples %d)", cfg.MinCount, cfg.MinSamples)
	}
	r.report.FittedGenes = filtered.NGenes()

	// 3. Fit
	fit, err := opts.Engine.Fit(ctx, &deseq.DataSet{
		Counts:    filtered,
		Meta:      meta,
		Formula:   cfg.Design,
		Reference: cfg.Reference,
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	if err := r.writeCounts(ctx, fit); err != nil {
		return nil, err
	}
	if err := r.writeHeatmap(ctx, fit, meta); err != nil {
		return nil, err
	}

	// 4-7. Extract, plot, enrich and export each contrast
	sets, err := r.loadGeneSets(ctx)
	if err != nil {
		return nil, err
	}

	for _, ct := range cfg.Contrasts {
		rows, err := r.contrast(ctx, fit, filtered, ct)
		if err != nil {
			return nil, err
		}
		if sets != nil {
			if err := r.enrich(ctx, ct, rows, sets); err != nil {
				return nil, err
			}
		}
	}

	if cfg.ReducedDesign != "" {
		if err := r.lrt(ctx, fit, filtered); err != nil {
			return nil, err
		}
	}

	return r.report, nil
}

// symbolizer returns the identifier map as a counts.Symbolizer, or nil when no
// map was loaded.
func (r *run) symbolizer() counts.Symbolizer {
	if r.symbols == nil {
		return nil
	}
	return r.symbols
}

package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/carbocation/rnadiff"
	"github.com/carbocation/rnadiff/counts"
	"github.com/carbocation/rnadiff/idmap"
	"github.com/carbocation/rnadiff/samplemeta"
)

func (r *run) load(ctx context.Context) (*counts.Matrix, *samplemeta.Table, error) {
	if r.cfg.CountsPath == "" || r.cfg.MetadataPath == "" {
		return nil, nil, fmt.Errorf("both a count file and a metadata file are required")
	}

	log.Printf("Reading counts from %s\n", r.cfg.CountsPath)
	rc, err := rnadiff.OpenInput(ctx, r.cfg.CountsPath, r.opts.Storage)
	if err != nil {
		return nil, nil, err
	}
	m, err := counts.Read(rc)
	rc.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", r.cfg.CountsPath, err)
	}
	log.Printf("Read %d genes x %d samples\n", m.NGenes(), m.NSamples())

	log.Printf("Reading sample metadata from %s\n", r.cfg.MetadataPath)
	meta, err := samplemeta.ReadFile(ctx, r.cfg.MetadataPath, r.opts.Storage)
	if err != nil {
		return nil, nil, err
	}
	if err := meta.Tidy(samplemeta.TidyOptions{Aliases: r.cfg.Aliases, Reference: r.cfg.Reference}); err != nil {
		return nil, nil, err
	}

	if r.cfg.IDMapPath != "" {
		if r.symbols, err = r.loadIDMap(ctx); err != nil {
			return nil, nil, err
		}

		if r.cfg.DropUnmapped {
			unmapped, duplicated := m.MapGenes(r.symbols)
			log.Printf("Renamed genes to symbols: dropped %d without a symbol and %d duplicated symbols; %d remain\n", unmapped, duplicated, m.NGenes())
		}
	}

	return m, meta, nil
}

func (r *run) loadIDMap(ctx context.Context) (*idmap.Map, error) {
	policy, err := idmap.ParsePolicy(r.cfg.IDMapPolicy)
	if err != nil {
		return nil, err
	}

	rc, err := rnadiff.OpenInput(ctx, r.cfg.IDMapPath, r.opts.Storage)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var ids *idmap.Map
	name := strings.ToLower(r.cfg.IDMapPath)
	for _, suffix := range []string{".gz", ".bz2", ".xz", ".zip"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if strings.HasSuffix(name, ".gtf") || strings.HasSuffix(name, ".gff") {
		ids, err = idmap.ReadGTF(rc, policy)
	} else {
		ids, err = idmap.ReadTable(rc, policy)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.cfg.IDMapPath, err)
	}

	log.Printf("Loaded %d identifier mappings (%s policy, %d ambiguous accessions set aside)\n", ids.Len(), policy, ids.Ambiguous)
	return ids, nil
}

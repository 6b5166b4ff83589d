// rnadiff runs differential expression between sample groups from a gene
// count table and a sample metadata sheet, then tests the ranked genes for
// gene set enrichment.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sort"

	"cloud.google.com/go/storage"
	"github.com/carbocation/rnadiff"
	_ "github.com/carbocation/rnadiff/compileinfoprint"
	"github.com/carbocation/rnadiff/config"
	"github.com/carbocation/rnadiff/pipeline"
)

func main() {
	var configPath, countsPath, metadataPath, outputPath, sqlitePath string
	flag.StringVar(&configPath, "config", "", "Path to a JSON config file. Optional: defaults are used for anything it does not set.")
	flag.StringVar(&countsPath, "counts", "", "Gene count table (tab-delimited, may be compressed or on gs://). Overrides the config.")
	flag.StringVar(&metadataPath, "metadata", "", "Sample metadata (csv, tsv or xls). Overrides the config.")
	flag.StringVar(&outputPath, "output", "", "Output directory or gs://bucket/prefix. Overrides the config.")
	flag.StringVar(&sqlitePath, "sqlite", "", "If set, also write all result tables to this SQLite database.")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.ParseJSONConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}
	}

	if countsPath != "" {
		cfg.CountsPath = countsPath
	}
	if metadataPath != "" {
		cfg.MetadataPath = metadataPath
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	if sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	cfg.Normalize()

	if cfg.CountsPath == "" || cfg.MetadataPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()

	opts := pipeline.Options{}
	if usesGCS(cfg) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
		opts.Storage = client
	}

	report, err := pipeline.Run(ctx, cfg, opts)
	if err != nil {
		log.Fatalln(err)
	}

	log.Printf("Fitted %d of %d genes across %d samples\n", report.FittedGenes, report.InputGenes, report.Samples)

	names := make([]string, 0, len(report.Contrasts))
	for name := range report.Contrasts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := report.Contrasts[name]
		log.Printf("%s: %d significant (%d up, %d down) of %d tested\n", name, s.Significant, s.Up, s.Down, s.Tested)
	}

	log.Println("Done")
}

func usesGCS(cfg config.JSONConfig) bool {
	for _, path := range []string{
		cfg.CountsPath,
		cfg.MetadataPath,
		cfg.IDMapPath,
		cfg.OutputPath,
		cfg.Enrichment.GMTPath,
		cfg.Enrichment.OBOPath,
	} {
		if rnadiff.IsGSPath(path) {
			return true
		}
	}
	return false
}

// gtf2idmap extracts a gene_id => gene_name table from a GTF annotation, in
// the format rnadiff accepts as an identifier map.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"log"
	"os"

	"github.com/carbocation/rnadiff"
	"github.com/carbocation/rnadiff/idmap"
)

const (
	// Delim is the character used to delimit the output
	Delim = '\t'
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var filename, policyName string
	flag.StringVar(&filename, "file", "", "Path to the gtf file (optionally gzip, bzip2 or xz compressed).")
	flag.StringVar(&policyName, "policy", "drop-ambiguous", "How to resolve accessions with several symbols: drop-ambiguous or first.")
	flag.Parse()

	if filename == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	policy, err := idmap.ParsePolicy(policyName)
	if err != nil {
		log.Fatalln(err)
	}

	rc, err := rnadiff.OpenInput(context.Background(), filename, nil)
	if err != nil {
		log.Fatalln(err)
	}
	defer rc.Close()

	m, err := idmap.ReadGTF(rc, policy)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("%d accessions mapped, %d ambiguous set aside\n", m.Len(), m.Ambiguous)

	w := csv.NewWriter(STDOUT)
	w.Comma = Delim
	defer w.Flush()

	if err := w.Write([]string{"gene_id", "symbol"}); err != nil {
		log.Fatalln(err)
	}
	for _, p := range m.Pairs() {
		if err := w.Write([]string{p.ID, p.Symbol}); err != nil {
			log.Fatalln(err)
		}
	}
}

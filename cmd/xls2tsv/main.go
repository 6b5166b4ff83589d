// xls2tsv prints one sheet of a legacy .xls workbook as tab-delimited text,
// e.g. to inspect a sample metadata sheet before handing it to rnadiff.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"log"
	"os"

	"github.com/carbocation/rnadiff/samplemeta"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var filename string
	var sheetID int
	var tidy bool

	flag.StringVar(&filename, "filename", "", "Name of XLS file")
	flag.IntVar(&sheetID, "sheet", 0, "0-based index of the sheet to print")
	flag.BoolVar(&tidy, "tidy", false, "Parse the sheet as sample metadata and print it after harmonizing its values")
	flag.Parse()

	if filename == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(filename)
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	records, err := samplemeta.ReadXLSRecords(f, sheetID)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Parsed %d rows from sheet %d\n", len(records), sheetID)

	if tidy {
		t, err := samplemeta.FromRecords(records)
		if err != nil {
			log.Fatalln(err)
		}
		if err := t.Tidy(samplemeta.TidyOptions{}); err != nil {
			log.Fatalln(err)
		}
		records = t.Records()
	}

	w := csv.NewWriter(STDOUT)
	w.Comma = '\t'
	defer w.Flush()

	if err := w.WriteAll(records); err != nil {
		log.Fatalln(err)
	}
}

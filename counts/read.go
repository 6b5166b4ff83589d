package counts

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

const (
	// GeneIDColumn names the identifier column of a count table.
	GeneIDColumn = "gene_id"
)

// transcriptColumns are removed from the count table; they hold the
// comma-joined transcripts that contributed to each gene (RSEM style).
var transcriptColumns = map[string]struct{}{
	"transcript_id(s)": {},
	"transcript_ids":   {},
	"transcript_id":    {},
}

// Read parses a tab-delimited gene count table with a header row containing
// gene_id, optionally transcript_id(s), and one column per sample. Gene
// identifiers lose their version suffix, fractional counts are rounded to the
// nearest integer, and duplicated identifiers are dropped (first occurrence
// wins).
func Read(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("count table is empty")
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	geneCol := -1
	sampleCols := make([]int, 0, len(header))
	m := &Matrix{}
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == GeneIDColumn {
			geneCol = i
			continue
		}
		if _, isTranscript := transcriptColumns[col]; isTranscript {
			continue
		}
		sampleCols = append(sampleCols, i)
		m.Samples = append(m.Samples, col)
	}

	if geneCol < 0 {
		return nil, fmt.Errorf("count table header has no %q column: %v", GeneIDColumn, header)
	}
	if len(sampleCols) == 0 {
		return nil, fmt.Errorf("count table header has no sample columns")
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		row := make([]int, len(sampleCols))
		for k, col := range sampleCols {
			v, err := parseCount(rec[col])
			if err != nil {
				return nil, fmt.Errorf("line %d, sample %s: %w", line, m.Samples[k], err)
			}
			row[k] = v
		}

		m.Genes = append(m.Genes, StripVersion(strings.TrimSpace(rec[geneCol])))
		m.Values = append(m.Values, row)
	}

	if dropped := m.Dedup(); dropped > 0 {
		log.Printf("Dropped %d count rows whose gene ID duplicated an earlier row\n", dropped)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

func parseCount(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}

	return int(math.Round(v)), nil
}

package idmap

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff"
)

// ReadTable parses a two-column delimited annotation (accession, symbol), such
// as a BioMart export. The delimiter is detected. A header row is recognized
// and skipped when its first field does not look like an accession that
// appears elsewhere, i.e. when it contains "id" or "gene" (case-insensitive).
func ReadTable(r io.Reader, policy Policy) (*Map, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	cr := csv.NewReader(bytes.NewReader(b))
	cr.Comma = rnadiff.DetermineDelimiter(b)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	pairs := make([]Pair, 0)
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("annotation line %d has %d columns, expected at least 2", i+1, len(rec))
		}
		if i == 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		if i == 0 && looksLikeHeader(rec[0]) {
			continue
		}
		pairs = append(pairs, Pair{ID: stripVersion(strings.TrimSpace(rec[0])), Symbol: rec[1]})
	}

	return Build(pairs, policy), nil
}

func looksLikeHeader(field string) bool {
	f := strings.ToLower(field)
	return strings.Contains(f, "id") || strings.Contains(f, "gene") || strings.Contains(f, "accession")
}

// ReadGTF builds a map from the gene_id and gene_name attributes of a GTF
// annotation. Only "gene" features are used when present; otherwise every
// feature row contributes.
func ReadGTF(r io.Reader, policy Policy) (*Map, error) {
	geneRows := make([]Pair, 0)
	otherRows := make([]Pair, 0)

	br := bufio.NewReader(r)
	for i := 0; ; i++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("GTF 0-based row %d error %s: %s", i, err, line)
		}
		if line == "" && err == io.EOF {
			break
		}

		lineCandidate := strings.TrimRight(line, "\r\n")
		if lineCandidate == "" || strings.HasPrefix(lineCandidate, "#") {
			if err == io.EOF {
				break
			}
			continue
		}

		row := strings.Split(lineCandidate, "\t")
		if x := len(row); x < 9 {
			return nil, fmt.Errorf("GTF 0-based row %d had %d columns, expected 9", i, x)
		}

		attributes, perr := ParseAttributes(row[8])
		if perr != nil {
			return nil, fmt.Errorf("GTF 0-based row %d: %s (%+v)", i, perr, row[8])
		}

		p := Pair{}
		for _, attr := range attributes {
			switch attr.Key {
			case "gene_id":
				p.ID = stripVersion(attr.Value)
			case "gene_name":
				p.Symbol = attr.Value
			}
		}

		if row[2] == "gene" {
			geneRows = append(geneRows, p)
		} else {
			otherRows = append(otherRows, p)
		}

		if err == io.EOF {
			break
		}
	}

	if len(geneRows) > 0 {
		return Build(geneRows, policy), nil
	}

	return Build(otherRows, policy), nil
}

type KeyValue struct {
	Key   string
	Value string
}

// ParseAttributes splits the 9th column of a GTF row into its key/value pairs.
func ParseAttributes(attr string) ([]KeyValue, error) {
	out := make([]KeyValue, 0)

	attributes := strings.Split(attr, ";")
	for i, attribute := range attributes {
		parts := strings.SplitN(strings.TrimSpace(attribute), " ", 2)
		if x := len(parts); x < 2 {
			// Line ends in a semicolon
			if strings.TrimSpace(attribute) == "" {
				continue
			}
			return nil, fmt.Errorf("attribute %d (%q) has no value", i, attribute)
		}

		out = append(out, KeyValue{Key: parts[0], Value: strings.Trim(strings.TrimSpace(parts[1]), "\"")})
	}

	return out, nil
}

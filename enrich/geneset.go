// Package enrich runs gene-set enrichment over differential expression
// results: ranked GSEA and thresholded over-representation analysis, with
// redundancy simplification and edge-table export.
package enrich

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
)

// GeneSet is one named collection of genes, e.g. all genes annotated to a GO
// term.
type GeneSet struct {
	ID          string
	Description string
	Genes       []string
}

// ReadGMT parses the Gene Matrix Transposed format: one set per line, tab
// separated, ID then description then member genes. Duplicate members are
// dropped; duplicate set IDs are an error.
func ReadGMT(r io.Reader) ([]GeneSet, error) {
	out := make([]GeneSet, 0)
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("gmt line %d: expected ID, description and at least one gene, got %d fields", line, len(fields))
		}

		id := strings.TrimSpace(fields[0])
		if id == "" {
			return nil, fmt.Errorf("gmt line %d: empty set ID", line)
		}
		if prior, exists := seen[id]; exists {
			return nil, fmt.Errorf("gmt line %d: set %s already defined on line %d", line, id, prior)
		}
		seen[id] = line

		set := GeneSet{ID: id, Description: strings.TrimSpace(fields[1])}
		members := make(map[string]struct{})
		for _, g := range fields[2:] {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			if _, dup := members[g]; dup {
				continue
			}
			members[g] = struct{}{}
			set.Genes = append(set.Genes, g)
		}
		out = append(out, set)
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// FilterNamespace keeps the sets whose ontology namespace matches ont ("BP",
// "MF", "CC" or "ALL"). Sets unknown to the ontology are dropped unless ont
// is ALL. Missing descriptions are filled from the ontology term names.
func FilterNamespace(sets []GeneSet, o *Ontology, ont string) ([]GeneSet, error) {
	if o == nil {
		return sets, nil
	}

	want, err := NamespaceFor(ont)
	if err != nil {
		return nil, err
	}

	out := make([]GeneSet, 0, len(sets))
	for _, s := range sets {
		term := o.Term(s.ID)
		if want != "" && (term == nil || term.Namespace != want) {
			continue
		}
		if term != nil && (s.Description == "" || strings.EqualFold(s.Description, "NA") || s.Description == s.ID) {
			s.Description = term.Name
		}
		out = append(out, s)
	}

	return out, nil
}

// Package counts holds the gene-by-sample read count matrix and the operations
// the pipeline applies to it before model fitting: identifier cleanup,
// deduplication, column alignment and low-count filtering.
package counts

import (
	"fmt"
	"strings"
)

// Matrix is a gene-by-sample table of integer read counts. Values[i][j] is the
// count for Genes[i] in Samples[j].
type Matrix struct {
	Genes   []string
	Samples []string
	Values  [][]int

	// Accessions holds the original identifier of each row when the rows have
	// been renamed (e.g., to gene symbols). It is nil otherwise.
	Accessions []string
}

// NGenes returns the number of rows.
func (m *Matrix) NGenes() int { return len(m.Genes) }

// NSamples returns the number of columns.
func (m *Matrix) NSamples() int { return len(m.Samples) }

// Validate checks that the matrix is rectangular and its identifiers are
// non-empty and unique.
func (m *Matrix) Validate() error {
	if len(m.Values) != len(m.Genes) {
		return fmt.Errorf("count matrix has %d gene IDs but %d rows", len(m.Genes), len(m.Values))
	}
	if m.Accessions != nil && len(m.Accessions) != len(m.Genes) {
		return fmt.Errorf("count matrix has %d gene IDs but %d accessions", len(m.Genes), len(m.Accessions))
	}

	seenSamples := make(map[string]struct{}, len(m.Samples))
	for _, s := range m.Samples {
		if s == "" {
			return fmt.Errorf("count matrix has an empty sample ID")
		}
		if _, exists := seenSamples[s]; exists {
			return fmt.Errorf("count matrix has duplicate sample ID %q", s)
		}
		seenSamples[s] = struct{}{}
	}

	seenGenes := make(map[string]struct{}, len(m.Genes))
	for i, g := range m.Genes {
		if _, exists := seenGenes[g]; exists {
			return fmt.Errorf("count matrix has duplicate gene ID %q", g)
		}
		seenGenes[g] = struct{}{}

		if x := len(m.Values[i]); x != len(m.Samples) {
			return fmt.Errorf("gene %s has %d values, expected %d", g, x, len(m.Samples))
		}
		for j, v := range m.Values[i] {
			if v < 0 {
				return fmt.Errorf("gene %s sample %s has negative count %d", g, m.Samples[j], v)
			}
		}
	}

	return nil
}

// StripVersion removes a trailing version from an identifier, e.g.
// ENSG00000223972.5 => ENSG00000223972. Everything from the first dot that is
// followed by a digit is dropped, so ENSG00000228572.7_PAR_Y collapses onto
// ENSG00000228572 and will then be deduplicated.
func StripVersion(id string) string {
	idx := strings.IndexByte(id, '.')
	if idx <= 0 || idx+1 >= len(id) {
		return id
	}

	if c := id[idx+1]; c < '0' || c > '9' {
		return id
	}

	return id[:idx]
}

// Dedup removes rows whose gene ID has already been seen, keeping the first
// occurrence. It returns the number of rows removed. Running it again removes
// nothing.
func (m *Matrix) Dedup() int {
	seen := make(map[string]struct{}, len(m.Genes))
	keep := 0
	for i, g := range m.Genes {
		if _, exists := seen[g]; exists {
			continue
		}
		seen[g] = struct{}{}

		m.Genes[keep] = m.Genes[i]
		m.Values[keep] = m.Values[i]
		if m.Accessions != nil {
			m.Accessions[keep] = m.Accessions[i]
		}
		keep++
	}

	dropped := len(m.Genes) - keep
	m.Genes = m.Genes[:keep]
	m.Values = m.Values[:keep]
	if m.Accessions != nil {
		m.Accessions = m.Accessions[:keep]
	}

	return dropped
}

// Subset returns a new matrix holding only the rows for which keep returns
// true. Row slices are shared with m.
func (m *Matrix) Subset(keep func(row int) bool) *Matrix {
	out := &Matrix{Samples: append([]string(nil), m.Samples...)}
	if m.Accessions != nil {
		out.Accessions = make([]string, 0)
	}
	for i := range m.Genes {
		if !keep(i) {
			continue
		}
		out.Genes = append(out.Genes, m.Genes[i])
		out.Values = append(out.Values, m.Values[i])
		if m.Accessions != nil {
			out.Accessions = append(out.Accessions, m.Accessions[i])
		}
	}

	return out
}

// FilterLowCounts keeps genes that have a count of at least minCount in at
// least minSamples samples. Lowering either threshold never retains fewer
// genes.
func (m *Matrix) FilterLowCounts(minCount, minSamples int) *Matrix {
	return m.Subset(func(row int) bool {
		support := 0
		for _, v := range m.Values[row] {
			if v >= minCount {
				support++
			}
		}
		return support >= minSamples
	})
}

// Reorder returns a copy of the matrix whose columns follow the given sample
// order. Every requested sample must exist, and the requested set must cover
// every column exactly once.
func (m *Matrix) Reorder(samples []string) (*Matrix, error) {
	if len(samples) != len(m.Samples) {
		return nil, fmt.Errorf("cannot reorder %d count columns into %d samples", len(m.Samples), len(samples))
	}

	index := make(map[string]int, len(m.Samples))
	for j, s := range m.Samples {
		index[s] = j
	}

	order := make([]int, len(samples))
	used := make(map[string]struct{}, len(samples))
	for k, s := range samples {
		j, exists := index[s]
		if !exists {
			return nil, fmt.Errorf("sample %q is not a column of the count matrix", s)
		}
		if _, dup := used[s]; dup {
			return nil, fmt.Errorf("sample %q was requested twice", s)
		}
		used[s] = struct{}{}
		order[k] = j
	}

	out := &Matrix{
		Genes:   append([]string(nil), m.Genes...),
		Samples: append([]string(nil), samples...),
		Values:  make([][]int, len(m.Values)),
	}
	if m.Accessions != nil {
		out.Accessions = append([]string(nil), m.Accessions...)
	}
	for i, row := range m.Values {
		newRow := make([]int, len(order))
		for k, j := range order {
			newRow[k] = row[j]
		}
		out.Values[i] = newRow
	}

	return out, nil
}

// Symbolizer translates a gene accession into a symbol.
type Symbolizer interface {
	Symbol(id string) (string, bool)
}

// MapGenes renames rows using ids, dropping rows that have no mapping. The
// original identifiers are kept in Accessions. Rows that collapse onto a
// symbol already seen are deduplicated (first wins). It returns the number of
// unmapped rows and the number of rows lost to deduplication.
func (m *Matrix) MapGenes(ids Symbolizer) (unmapped, duplicated int) {
	out := m.Subset(func(row int) bool {
		_, ok := ids.Symbol(m.Genes[row])
		return ok
	})
	unmapped = m.NGenes() - out.NGenes()

	accessions := make([]string, out.NGenes())
	for i, g := range out.Genes {
		if out.Accessions != nil {
			accessions[i] = out.Accessions[i]
		} else {
			accessions[i] = g
		}
		sym, _ := ids.Symbol(g)
		out.Genes[i] = sym
	}
	out.Accessions = accessions

	duplicated = out.Dedup()
	*m = *out

	return unmapped, duplicated
}

// Column returns the counts of one sample across all genes.
func (m *Matrix) Column(j int) []int {
	out := make([]int, len(m.Genes))
	for i := range m.Values {
		out[i] = m.Values[i][j]
	}
	return out
}

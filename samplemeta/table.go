// Package samplemeta loads per-sample covariates, tidies their categorical
// values and aligns them with the columns of a count matrix.
package samplemeta

import (
	"fmt"
	"sort"
	"strings"
)

// Column names that every metadata table must provide.
const (
	SampleColumn    = "sample"
	DiagnosisColumn = "diagnosis"
	LobeColumn      = "lobe"
)

// Sample is one row of the metadata table.
type Sample struct {
	ID        string
	Diagnosis string
	Lobe      string

	// Extra holds any other column, keyed by its (lower-cased) header.
	Extra map[string]string
}

// Table is the ordered set of samples. Its row order is authoritative: the
// count matrix is reordered to follow it.
type Table struct {
	Samples []Sample

	// ExtraColumns lists the extra headers in file order.
	ExtraColumns []string
}

// IDs returns the sample identifiers in row order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.ID
	}
	return out
}

// Value returns the value of a covariate for sample i.
func (t *Table) Value(i int, factor string) (string, error) {
	if i < 0 || i >= len(t.Samples) {
		return "", fmt.Errorf("sample index %d out of range (%d samples)", i, len(t.Samples))
	}

	s := t.Samples[i]
	switch strings.ToLower(factor) {
	case DiagnosisColumn:
		return s.Diagnosis, nil
	case LobeColumn:
		return s.Lobe, nil
	case SampleColumn:
		return s.ID, nil
	}

	v, exists := s.Extra[strings.ToLower(factor)]
	if !exists {
		return "", fmt.Errorf("metadata has no column named %q", factor)
	}

	return v, nil
}

// Column returns the value of a covariate for every sample.
func (t *Table) Column(factor string) ([]string, error) {
	out := make([]string, len(t.Samples))
	for i := range t.Samples {
		v, err := t.Value(i, factor)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Levels returns the distinct values of a covariate. The reference level (if
// non-empty) is placed first and must exist; the remaining levels are sorted.
func (t *Table) Levels(factor, reference string) ([]string, error) {
	col, err := t.Column(factor)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	levels := make([]string, 0)
	for _, v := range col {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		levels = append(levels, v)
	}
	sort.Strings(levels)

	if reference == "" {
		return levels, nil
	}

	if _, exists := seen[reference]; !exists {
		return nil, fmt.Errorf("reference level %q is not a value of %s (levels: %v)", reference, factor, levels)
	}

	out := []string{reference}
	for _, v := range levels {
		if v != reference {
			out = append(out, v)
		}
	}

	return out, nil
}

// Validate requires unique, non-empty sample IDs.
func (t *Table) Validate() error {
	if len(t.Samples) == 0 {
		return fmt.Errorf("metadata has no samples")
	}

	seen := make(map[string]int, len(t.Samples))
	for i, s := range t.Samples {
		if s.ID == "" {
			return fmt.Errorf("metadata row %d has an empty sample ID", i+1)
		}
		if prior, exists := seen[s.ID]; exists {
			return fmt.Errorf("metadata rows %d and %d share sample ID %q", prior+1, i+1, s.ID)
		}
		seen[s.ID] = i
	}

	return nil
}

// Records renders the table as a header row followed by one row per sample,
// the inverse of FromRecords.
func (t *Table) Records() [][]string {
	header := append([]string{SampleColumn, DiagnosisColumn, LobeColumn}, t.ExtraColumns...)
	out := make([][]string, 0, len(t.Samples)+1)
	out = append(out, header)
	for _, s := range t.Samples {
		rec := []string{s.ID, s.Diagnosis, s.Lobe}
		for _, name := range t.ExtraColumns {
			rec = append(rec, s.Extra[name])
		}
		out = append(out, rec)
	}
	return out
}

package samplemeta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carbocation/rnadiff/counts"
)

// MismatchError reports sample identifiers that are present in only one of
// the count matrix and the metadata table.
type MismatchError struct {
	MissingFromCounts   []string
	MissingFromMetadata []string
}

func (e *MismatchError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingFromCounts) > 0 {
		parts = append(parts, fmt.Sprintf("%d metadata samples have no count column: %s", len(e.MissingFromCounts), strings.Join(e.MissingFromCounts, ", ")))
	}
	if len(e.MissingFromMetadata) > 0 {
		parts = append(parts, fmt.Sprintf("%d count columns have no metadata row: %s", len(e.MissingFromMetadata), strings.Join(e.MissingFromMetadata, ", ")))
	}
	return "sample mismatch between counts and metadata: " + strings.Join(parts, "; ")
}

// Align returns a copy of m whose columns follow the metadata row order. The
// two sample ID sets must be identical, otherwise a *MismatchError is
// returned.
func Align(m *counts.Matrix, t *Table) (*counts.Matrix, error) {
	if err := compareSets(m.Samples, t.IDs()); err != nil {
		return nil, err
	}

	out, err := m.Reorder(t.IDs())
	if err != nil {
		return nil, err
	}

	if err := CheckAligned(out, t); err != nil {
		return nil, err
	}

	return out, nil
}

// CheckAligned verifies that the count columns and the metadata rows name the
// same samples in the same order.
func CheckAligned(m *counts.Matrix, t *Table) error {
	ids := t.IDs()
	if err := compareSets(m.Samples, ids); err != nil {
		return err
	}

	for j := range ids {
		if m.Samples[j] != ids[j] {
			return fmt.Errorf("count column %d is %q but metadata row %d is %q", j+1, m.Samples[j], j+1, ids[j])
		}
	}

	return nil
}

func compareSets(countSamples, metaSamples []string) error {
	inCounts := make(map[string]struct{}, len(countSamples))
	for _, s := range countSamples {
		inCounts[s] = struct{}{}
	}
	inMeta := make(map[string]struct{}, len(metaSamples))
	for _, s := range metaSamples {
		inMeta[s] = struct{}{}
	}

	mismatch := &MismatchError{}
	for _, s := range metaSamples {
		if _, exists := inCounts[s]; !exists {
			mismatch.MissingFromCounts = append(mismatch.MissingFromCounts, s)
		}
	}
	for _, s := range countSamples {
		if _, exists := inMeta[s]; !exists {
			mismatch.MissingFromMetadata = append(mismatch.MissingFromMetadata, s)
		}
	}

	if len(mismatch.MissingFromCounts) == 0 && len(mismatch.MissingFromMetadata) == 0 {
		return nil
	}

	sort.Strings(mismatch.MissingFromCounts)
	sort.Strings(mismatch.MissingFromMetadata)

	return mismatch
}

// Package idmap translates gene accessions (e.g., Ensembl gene IDs) into gene
// symbols. Ambiguous collapses are resolved by a Policy.
package idmap

import (
	"fmt"
	"sort"
	"strings"
)

// Policy decides what happens when an accession maps to more than one symbol,
// or a symbol is claimed by more than one accession.
type Policy int

const (
	// DropAmbiguous removes every accession involved in a conflict, so the
	// remaining map is one-to-one.
	DropAmbiguous Policy = iota

	// FirstWins keeps the first accession/symbol pairing seen and ignores later
	// conflicting rows.
	FirstWins
)

func (p Policy) String() string {
	switch p {
	case DropAmbiguous:
		return "drop-ambiguous"
	case FirstWins:
		return "first"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts "drop-ambiguous" or "first".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop-ambiguous", "drop":
		return DropAmbiguous, nil
	case "first", "first-wins":
		return FirstWins, nil
	}
	return DropAmbiguous, fmt.Errorf("unknown identifier collapse policy %q (expected drop-ambiguous or first)", s)
}

// Pair is one accession => symbol row of an annotation source.
type Pair struct {
	ID     string
	Symbol string
}

// Map is a one-to-one accession <=> symbol lookup.
type Map struct {
	toSymbol map[string]string
	toID     map[string]string

	// Ambiguous is the number of accessions removed (or ignored) because of a
	// conflicting mapping.
	Ambiguous int
}

// Build creates a one-to-one map from annotation pairs. Empty IDs or symbols
// are ignored, and exact duplicate pairs count once.
func Build(pairs []Pair, policy Policy) *Map {
	m := &Map{
		toSymbol: make(map[string]string),
		toID:     make(map[string]string),
	}

	// Record every distinct symbol per accession and every distinct accession
	// per symbol, in order of first appearance.
	symbolsOf := make(map[string][]string)
	idsOf := make(map[string][]string)
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		id, sym := strings.TrimSpace(p.ID), strings.TrimSpace(p.Symbol)
		if id == "" || sym == "" {
			continue
		}
		if _, seen := symbolsOf[id]; !seen {
			order = append(order, id)
		}
		if !contains(symbolsOf[id], sym) {
			symbolsOf[id] = append(symbolsOf[id], sym)
		}
		if !contains(idsOf[sym], id) {
			idsOf[sym] = append(idsOf[sym], id)
		}
	}

	for _, id := range order {
		syms := symbolsOf[id]
		switch policy {
		case FirstWins:
			sym := syms[0]
			if _, taken := m.toID[sym]; taken {
				m.Ambiguous++
				continue
			}
			m.toSymbol[id] = sym
			m.toID[sym] = id
		default:
			if len(syms) > 1 || len(idsOf[syms[0]]) > 1 {
				m.Ambiguous++
				continue
			}
			m.toSymbol[id] = syms[0]
			m.toID[syms[0]] = id
		}
	}

	return m
}

// Symbol returns the symbol for an accession. Versioned accessions are looked
// up without their version.
func (m *Map) Symbol(id string) (string, bool) {
	s, ok := m.toSymbol[id]
	if !ok {
		s, ok = m.toSymbol[stripVersion(id)]
	}
	return s, ok
}

// ID returns the accession for a symbol.
func (m *Map) ID(symbol string) (string, bool) {
	id, ok := m.toID[symbol]
	return id, ok
}

// Len returns the number of accessions in the map.
func (m *Map) Len() int {
	return len(m.toSymbol)
}

// Pairs returns the retained mappings sorted by accession.
func (m *Map) Pairs() []Pair {
	out := make([]Pair, 0, len(m.toSymbol))
	for id, sym := range m.toSymbol {
		out = append(out, Pair{ID: id, Symbol: sym})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func stripVersion(id string) string {
	idx := strings.IndexByte(id, '.')
	if idx <= 0 || idx+1 >= len(id) || id[idx+1] < '0' || id[idx+1] > '9' {
		return id
	}
	return id[:idx]
}

package enrich

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
)

const testOBO = `format-version: 1.2
ontology: go

[Term]
id: GO:0000001
name: root process
namespace: biological_process

[Term]
id: GO:0000002
name: child two
namespace: biological_process
is_a: GO:0000001 ! root process

[Term]
id: GO:0000003
name: child three
namespace: biological_process
alt_id: GO:0000033
is_a: GO:0000001 ! root process

[Term]
id: GO:0000004
name: grandchild
namespace: biological_process
is_a: GO:0000002 ! child two
relationship: part_of GO:0000003 ! child three

[Term]
id: GO:0000005
name: some function
namespace: molecular_function

[Typedef]
id: part_of
name: part of
`

func readTestOBO(t *testing.T) *Ontology {
	t.Helper()
	o, err := ReadOBO(strings.NewReader(testOBO))
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func genes(prefix string, from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func TestReadGMT(t *testing.T) {
	in := "GO:0000002\tNA\tTP53\tPTEN\tTP53\n\n# comment\nGO:0000005\tsome function\tMYC\n"
	sets, err := ReadGMT(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	if len(sets) != 2 {
		t.Fatalf("read %d sets, want 2", len(sets))
	}
	if len(sets[0].Genes) != 2 {
		t.Errorf("duplicate members should be dropped, got %v", sets[0].Genes)
	}

	if _, err := ReadGMT(strings.NewReader("A\tdesc\tX\nA\tdesc\tY\n")); err == nil {
		t.Errorf("expected an error for a repeated set ID")
	}
	if _, err := ReadGMT(strings.NewReader("A\tdesc\n")); err == nil {
		t.Errorf("expected an error for a set without genes")
	}
}

func TestReadOBOAndFilter(t *testing.T) {
	o := readTestOBO(t)

	if o.Len() != 5 {
		t.Fatalf("read %d terms, want 5", o.Len())
	}
	if term := o.Term("GO:0000033"); term == nil || term.ID != "GO:0000003" {
		t.Errorf("alt_id did not resolve: %+v", term)
	}
	if term := o.Term("GO:0000004"); len(term.IsA) != 1 || len(term.PartOf) != 1 || term.PartOf[0] != "GO:0000003" {
		t.Errorf("unexpected edges %+v", term)
	}

	sets := []GeneSet{
		{ID: "GO:0000002", Description: "NA", Genes: []string{"A"}},
		{ID: "GO:0000005", Description: "some function", Genes: []string{"B"}},
		{ID: "GO:9999999", Description: "unknown", Genes: []string{"C"}},
	}

	bp, err := FilterNamespace(sets, o, "BP")
	if err != nil {
		t.Fatal(err)
	}
	if len(bp) != 1 || bp[0].ID != "GO:0000002" || bp[0].Description != "child two" {
		t.Errorf("unexpected BP filter result %+v", bp)
	}

	all, err := FilterNamespace(sets, o, "ALL")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ALL should keep every set, got %d", len(all))
	}

	if _, err := FilterNamespace(sets, o, "XX"); err == nil {
		t.Errorf("expected an error for an unknown ontology")
	}
}

func TestWangSimilarity(t *testing.T) {
	w := NewWang(readTestOBO(t))

	cases := []struct {
		a, b string
		want float64
	}{
		{"GO:0000004", "GO:0000002", 3.24 / 4.84},
		{"GO:0000002", "GO:0000003", 1.6 / 3.6},
		{"GO:0000002", "GO:0000002", 1},
		{"GO:0000002", "GO:0000005", 0},
		{"GO:0000002", "GO:1234567", 0},
	}

	for _, c := range cases {
		got := w.Similarity(c.a, c.b)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("sim(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
		if back := w.Similarity(c.b, c.a); math.Abs(back-got) > 1e-12 {
			t.Errorf("similarity is not symmetric for %s, %s", c.a, c.b)
		}
	}
}

func TestJaccard(t *testing.T) {
	j := NewJaccard([]GeneSet{
		{ID: "A", Genes: []string{"1", "2", "3"}},
		{ID: "B", Genes: []string{"2", "3", "4"}},
	})
	if got := j.Similarity("A", "B"); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("jaccard = %v, want 0.5", got)
	}
	if got := j.Similarity("A", "missing"); got != 0 {
		t.Errorf("jaccard with a missing set = %v, want 0", got)
	}
}

func TestSimplify(t *testing.T) {
	sets := []GeneSet{
		{ID: "A", Genes: genes("G", 0, 10)},
		{ID: "B", Genes: genes("G", 0, 9)},
		{ID: "C", Genes: genes("G", 50, 60)},
		{ID: "D", Genes: genes("G", 50, 60)},
	}
	rs := []*Result{
		{ID: "A", PAdjust: 0.01},
		{ID: "B", PAdjust: 0.001},
		{ID: "C", PAdjust: 0.02},
		{ID: "D", PAdjust: 0.02},
	}

	got := Simplify(rs, NewJaccard(sets), 0.7)
	if len(got) != 2 || got[0].ID != "B" || got[1].ID != "C" {
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		t.Fatalf("simplified to %v, want [B C]", ids)
	}

	if kept := Simplify(rs, NewJaccard(sets), 1); len(kept) != len(rs) {
		t.Errorf("a cutoff of 1 should keep everything, kept %d", len(kept))
	}
}

func TestEdges(t *testing.T) {
	rs := []*Result{
		{ID: "GO:1", Description: "one", Genes: "TP53/PTEN"},
		{ID: "GO:2", Description: "two", Genes: "MYC"},
		{ID: "GO:3", Description: "three"},
	}

	es := Edges(rs)
	if len(es) != 3 {
		t.Fatalf("%d edges, want 3", len(es))
	}
	if es[1].ID != "GO:1" || es[1].Gene != "PTEN" || es[2].Gene != "MYC" {
		t.Errorf("unexpected edges %+v %+v", es[1], es[2])
	}

	var buf bytes.Buffer
	if err := WriteEdges(&buf, es); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "ID,Description,gene\n") {
		t.Errorf("unexpected edge header: %q", buf.String())
	}
}

func TestORA(t *testing.T) {
	universe := genes("G", 0, 100)
	sets := []GeneSet{
		{ID: "S1", Description: "first", Genes: genes("G", 0, 20)},
		{ID: "S2", Description: "second", Genes: genes("G", 50, 70)},
		{ID: "S3", Description: "tiny", Genes: genes("G", 0, 3)},
	}
	selected := append(genes("G", 0, 10), "NOTINUNIVERSE")

	rs, err := ORA(selected, universe, sets, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if len(rs) != 1 {
		t.Fatalf("%d results, want 1", len(rs))
	}
	r := rs[0]
	if r.ID != "S1" || r.GeneRatio != "10/10" || r.BgRatio != "20/40" || r.Count != 10 {
		t.Errorf("unexpected result %+v", r)
	}
	if !(float64(r.PValue) < 1e-4) || !(float64(r.PAdjust) < 0.05) {
		t.Errorf("expected strong enrichment, got p=%v padj=%v", r.PValue, r.PAdjust)
	}
	if len(r.GeneList()) != 10 {
		t.Errorf("expected 10 overlapping genes, got %v", r.GeneList())
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, rs); err != nil {
		t.Fatal(err)
	}
	back, err := ReadResults(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 1 || back[0].ID != "S1" || back[0].GeneRatio != "10/10" || !back[0].NES.IsNA() {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestNewRankedList(t *testing.T) {
	l, err := NewRankedList(
		[]string{"B", "A", "C", "D", "A"},
		[]float64{1, 1, 3, math.NaN(), 5},
	)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"C", "A", "B"}
	if l.Len() != len(want) {
		t.Fatalf("ranked %v, want %v", l.Genes, want)
	}
	for i := range want {
		if l.Genes[i] != want[i] {
			t.Fatalf("ranked %v, want %v", l.Genes, want)
		}
	}
}

func TestEnrichmentScore(t *testing.T) {
	w := []float64{3, 2, 1, 0.5}

	if es, pos := enrichmentScore(w, []int{0}); es != 1 || pos != 0 {
		t.Errorf("top hit: es=%v pos=%v", es, pos)
	}
	if es, pos := enrichmentScore(w, []int{3}); es != -1 || pos != 2 {
		t.Errorf("bottom hit: es=%v pos=%v", es, pos)
	}
}

func TestGSEA(t *testing.T) {
	all := genes("G", 0, 200)
	scores := make([]float64, len(all))
	for i := range scores {
		scores[i] = float64(100 - i)
	}
	ranked, err := NewRankedList(all, scores)
	if err != nil {
		t.Fatal(err)
	}

	mixed := make([]string, 0)
	for i := 0; i < 200; i += 10 {
		mixed = append(mixed, fmt.Sprintf("G%d", i))
	}
	sets := []GeneSet{
		{ID: "UP", Genes: genes("G", 0, 20)},
		{ID: "DOWN", Genes: genes("G", 180, 200)},
		{ID: "MIXED", Genes: mixed},
		{ID: "SMALL", Genes: genes("G", 0, 5)},
	}

	opts := DefaultOptions()
	opts.PAdjustCutoff = 1
	rs, err := GSEA(context.Background(), ranked, sets, opts)
	if err != nil {
		t.Fatal(err)
	}

	byID := make(map[string]*Result)
	for _, r := range rs {
		byID[r.ID] = r
	}
	if _, exists := byID["SMALL"]; exists {
		t.Errorf("set below the minimum size should be skipped")
	}

	up, down, mixedRes := byID["UP"], byID["DOWN"], byID["MIXED"]
	if up == nil || down == nil || mixedRes == nil {
		t.Fatalf("missing results: %v", byID)
	}

	if float64(up.EnrichmentScore) != 1 || !(float64(up.NES) > 1) || !(float64(up.PAdjust) < 0.05) {
		t.Errorf("UP: es=%v nes=%v padj=%v", up.EnrichmentScore, up.NES, up.PAdjust)
	}
	if up.Rank != 20 || len(up.GeneList()) != 20 || up.GeneList()[0] != "G0" {
		t.Errorf("UP leading edge: rank %d, genes %v", up.Rank, up.GeneList())
	}

	if float64(down.EnrichmentScore) != -1 || !(float64(down.NES) < -1) || !(float64(down.PAdjust) < 0.05) {
		t.Errorf("DOWN: es=%v nes=%v padj=%v", down.EnrichmentScore, down.NES, down.PAdjust)
	}
	if len(down.GeneList()) != 20 {
		t.Errorf("DOWN leading edge has %d genes", len(down.GeneList()))
	}

	if !(float64(mixedRes.PValue) > 0.05) {
		t.Errorf("MIXED should not be enriched, p=%v", mixedRes.PValue)
	}

	again, err := GSEA(context.Background(), ranked, sets, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range rs {
		if rs[i].ID != again[i].ID || rs[i].PValue != again[i].PValue || rs[i].NES != again[i].NES {
			t.Fatalf("GSEA is not reproducible with a fixed seed")
		}
	}
}

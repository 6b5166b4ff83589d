package idmap

import (
	"strings"
	"testing"
)

func TestBuildDropAmbiguous(t *testing.T) {
	m := Build([]Pair{
		{"E1", "TP53"},
		{"E2", "GFAP"},
		{"E2", "GFAP"}, // exact duplicate, harmless
		{"E3", "MTOR"},
		{"E4", "MTOR"}, // many-to-one: both E3 and E4 are ambiguous
		{"E5", "A"},
		{"E5", "B"}, // one-to-many: E5 is ambiguous
		{"", "X"},
	}, DropAmbiguous)

	if m.Len() != 2 {
		t.Errorf("Expected 2 unambiguous accessions, got %d", m.Len())
	}
	if m.Ambiguous != 3 {
		t.Errorf("Expected 3 ambiguous accessions, got %d", m.Ambiguous)
	}
	if s, ok := m.Symbol("E2"); !ok || s != "GFAP" {
		t.Errorf("E2 => %q %v", s, ok)
	}
	if _, ok := m.Symbol("E3"); ok {
		t.Error("E3 should have been dropped")
	}
	if id, ok := m.ID("TP53"); !ok || id != "E1" {
		t.Errorf("TP53 => %q %v", id, ok)
	}
}

func TestPairsSorted(t *testing.T) {
	m := Build([]Pair{{"E9", "Z"}, {"E1", "A"}, {"E5", "M"}}, DropAmbiguous)

	got := m.Pairs()
	want := []Pair{{"E1", "A"}, {"E5", "M"}, {"E9", "Z"}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuildFirstWins(t *testing.T) {
	m := Build([]Pair{
		{"E3", "MTOR"},
		{"E4", "MTOR"},
		{"E5", "A"},
		{"E5", "B"},
	}, FirstWins)

	if s, ok := m.Symbol("E3"); !ok || s != "MTOR" {
		t.Errorf("E3 => %q %v", s, ok)
	}
	if _, ok := m.Symbol("E4"); ok {
		t.Error("E4 should lose to E3")
	}
	if s, _ := m.Symbol("E5"); s != "A" {
		t.Errorf("E5 => %q", s)
	}
}

func TestSymbolIgnoresVersion(t *testing.T) {
	m := Build([]Pair{{"ENSG01", "TP53"}}, DropAmbiguous)
	if s, ok := m.Symbol("ENSG01.14"); !ok || s != "TP53" {
		t.Errorf("Versioned lookup failed: %q %v", s, ok)
	}
}

func TestReadTableByteOrderMark(t *testing.T) {
	m, err := ReadTable(strings.NewReader("\ufeffgene_id,symbol\nENSG01,TP53\n"), DropAmbiguous)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Errorf("Expected the header to be skipped, got %d mappings", m.Len())
	}
}

func TestReadTable(t *testing.T) {
	input := "Gene stable ID\tGene name\nENSG01.2\tTP53\nENSG02\tGFAP\n"
	m, err := ReadTable(strings.NewReader(input), DropAmbiguous)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 rows, got %d", m.Len())
	}
	if s, _ := m.Symbol("ENSG01"); s != "TP53" {
		t.Errorf("ENSG01 => %q", s)
	}
}

func TestReadGTF(t *testing.T) {
	gtf := "#!genome-build GRCh38\n" +
		"1\thavana\tgene\t11869\t14409\t.\t+\t.\tgene_id \"ENSG00000223972.5\"; gene_name \"DDX11L1\"; gene_type \"transcribed_unprocessed_pseudogene\";\n" +
		"1\thavana\ttranscript\t11869\t14409\t.\t+\t.\tgene_id \"ENSG00000223972.5\"; transcript_id \"ENST00000456328.2\"; gene_name \"DDX11L1\";\n" +
		"1\thavana\tgene\t14404\t29570\t.\t-\t.\tgene_id \"ENSG00000227232.5\"; gene_name \"WASH7P\";"

	m, err := ReadGTF(strings.NewReader(gtf), DropAmbiguous)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Errorf("Expected 2 genes, got %d", m.Len())
	}
	if s, _ := m.Symbol("ENSG00000227232"); s != "WASH7P" {
		t.Errorf("ENSG00000227232 => %q", s)
	}
}

func TestParseAttributes(t *testing.T) {
	attrs, err := ParseAttributes(`gene_id "G1"; gene_name "ABC";`)
	if err != nil {
		t.Fatal(err)
	}
	if len(attrs) != 2 || attrs[1].Key != "gene_name" || attrs[1].Value != "ABC" {
		t.Errorf("Unexpected attributes: %+v", attrs)
	}

	if _, err := ParseAttributes(`gene_id "G1"; orphan;`); err == nil {
		t.Error("Expected an error for an attribute without a value")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("first"); err != nil || p != FirstWins {
		t.Errorf("first => %v %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != DropAmbiguous {
		t.Errorf("empty => %v %v", p, err)
	}
	if _, err := ParsePolicy("random"); err == nil {
		t.Error("Expected an error")
	}
}

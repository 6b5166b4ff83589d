package plots

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/carbocation/rnadiff/enrich"
	"github.com/carbocation/rnadiff/results"
	"github.com/carbocation/rnadiff/table"
)

func TestSampleDistances(t *testing.T) {
	values := [][]float64{
		{0, 3, 0},
		{0, 4, 1},
	}

	d, err := SampleDistances(values)
	if err != nil {
		t.Fatal(err)
	}

	if d[0][1] != 5 || d[1][0] != 5 {
		t.Errorf("d(0,1) = %v, want 5", d[0][1])
	}
	if d[0][2] != 1 || d[0][0] != 0 {
		t.Errorf("unexpected distances %v", d)
	}
}

func TestCompleteLinkageOrder(t *testing.T) {
	// Two tight pairs {0,2} and {1,3}.
	dist := [][]float64{
		{0, 10, 1, 9},
		{10, 0, 8, 2},
		{1, 8, 0, 11},
		{9, 2, 11, 0},
	}

	got := CompleteLinkageOrder(dist)
	want := []int{0, 2, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestPalette(t *testing.T) {
	p, err := NewPalette(map[string]map[string]string{
		"diagnosis": {"Control": "#1b9e77", "FCDIIb": "#D95F02"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := Hex(p.Color("Diagnosis", "FCDIIb", 5)); got != "#d95f02" {
		t.Errorf("configured color %s, want #d95f02", got)
	}
	if got := p.Color("lobe", "Frontal", 1); got != defaultColors[1] {
		t.Errorf("unconfigured level should use the default cycle, got %s", Hex(got))
	}

	if _, err := NewPalette(map[string]map[string]string{"x": {"y": "nothex"}}); err == nil {
		t.Errorf("expected an error for a malformed color")
	}
}

func TestDistanceHeatmap(t *testing.T) {
	labels := []string{"S1", "S2", "S3"}
	dist := [][]float64{{0, 2, 5}, {2, 0, 4}, {5, 4, 0}}
	opts := HeatmapOptions{
		Title: "Sample distances",
		Annotations: []Annotation{
			{Name: "diagnosis", Values: []string{"Control", "Control", "FCDIIb"}, Levels: []string{"Control", "FCDIIb"}},
		},
	}

	var buf bytes.Buffer
	if err := DistanceHeatmap(&buf, labels, dist, opts); err != nil {
		t.Fatal(err)
	}

	svg := buf.String()
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, "FCDIIb") || !strings.Contains(svg, "S3") {
		t.Errorf("heatmap SVG is missing expected content")
	}

	opts.Annotations[0].Values = []string{"Control"}
	if err := DistanceHeatmap(&buf, labels, dist, opts); err == nil {
		t.Errorf("expected an error for a short annotation")
	}
}

func volcanoRows() []*results.Row {
	th := results.DefaultThresholds()
	mk := func(id string, lfc, padj float64) *results.Row {
		r := &results.Row{GeneID: id, Log2FoldChange: table.Float(lfc), PAdj: table.Float(padj), PValue: table.Float(padj / 2)}
		r.Significant, r.Status = results.Classify(lfc, padj, th)
		return r
	}
	return []*results.Row{
		mk("BIGUP", 3.2, 1e-20),
		mk("UP", 1.1, 0.01),
		mk("DOWN", -1.4, 0.001),
		mk("FLAT", 0.1, 0.8),
		mk("ZERO", 4, 0),
		mk("NA", math.NaN(), math.NaN()),
	}
}

func TestVolcano(t *testing.T) {
	var buf bytes.Buffer
	err := Volcano(&buf, volcanoRows(), VolcanoOptions{
		Title:       "FCDIIb vs Control",
		Thresholds:  results.DefaultThresholds(),
		LabelCutoff: 2.5,
	})
	if err != nil {
		t.Fatal(err)
	}

	svg := buf.String()
	if !strings.Contains(svg, "<svg") {
		t.Fatalf("output is not SVG")
	}
	if !strings.Contains(svg, "BIGUP") {
		t.Errorf("strongly changed gene should be labeled")
	}
	if strings.Contains(svg, ">UP<") {
		t.Errorf("moderately changed gene should not be labeled")
	}
}

func TestEnrichmentBarplot(t *testing.T) {
	rs := []*enrich.Result{
		{ID: "GO:1", Description: "a very long description that certainly needs truncating", PAdjust: 1e-5},
		{ID: "GO:2", PAdjust: 0.01},
	}

	var buf bytes.Buffer
	if err := EnrichmentBarplot(&buf, rs, 10, "top terms"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Errorf("output is not SVG")
	}

	if err := EnrichmentBarplot(&buf, nil, 10, ""); err == nil {
		t.Errorf("expected an error without results")
	}
}

func TestPValueHistogram(t *testing.T) {
	var buf bytes.Buffer
	if err := PValueHistogram(&buf, []float64{0.01, 0.02, 0.5, 0.9, 0.99}, 5); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Errorf("histogram printed nothing")
	}
}

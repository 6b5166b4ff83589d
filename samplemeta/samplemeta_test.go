package samplemeta

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/carbocation/rnadiff/counts"
)

const metadataCSV = "Sample,Diagnosis,Lobe,Age\n" +
	"S3,FCD IIb,Frontal,12\n" +
	"S1,control,frontal ,30\n" +
	"S2,Control,Temporal,41\n" +
	",,,\n"

func TestReadDelimited(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(tab.IDs(), []string{"S3", "S1", "S2"}) {
		t.Errorf("IDs: %v", tab.IDs())
	}
	if v, err := tab.Value(1, "age"); err != nil || v != "30" {
		t.Errorf("age of S1: %q %v", v, err)
	}
	if _, err := tab.Value(0, "missing"); err == nil {
		t.Error("Expected an error for an unknown column")
	}
}

func TestReadDelimitedTabs(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader("sample\tdiagnosis\tlobe\nA\tControl\tFrontal\nB\tFCDIIb\tFrontal\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tab.Samples) != 2 || tab.Samples[1].Diagnosis != "FCDIIb" {
		t.Errorf("Unexpected table: %+v", tab.Samples)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}

	recs := tab.Records()
	if !reflect.DeepEqual(recs[0], []string{"sample", "diagnosis", "lobe", "age"}) {
		t.Errorf("header: %v", recs[0])
	}

	again, err := FromRecords(recs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again.Samples, tab.Samples) {
		t.Errorf("round trip changed the samples:\n%+v\n%+v", tab.Samples, again.Samples)
	}
}

func TestFromRecordsMissingColumns(t *testing.T) {
	_, err := FromRecords([][]string{{"sample", "diagnosis"}, {"A", "B"}})
	if err == nil || !strings.Contains(err.Error(), "lobe") {
		t.Errorf("Expected a missing lobe error, got %v", err)
	}
}

func TestFromRecordsDuplicateSamples(t *testing.T) {
	_, err := FromRecords([][]string{{"sample", "diagnosis", "lobe"}, {"A", "x", "y"}, {"A", "x", "y"}})
	if err == nil {
		t.Error("Expected an error for duplicated sample IDs")
	}
}

func TestTidy(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}

	// Non-breaking space and doubled inner whitespace
	tab.Samples[0].Diagnosis = "FCD\u00a0 IIb"

	if err := tab.Tidy(TidyOptions{Aliases: map[string]string{"fcd iib": "FCDIIb"}}); err != nil {
		t.Fatal(err)
	}

	diag, _ := tab.Column("diagnosis")
	if !reflect.DeepEqual(diag, []string{"FCDIIb", "control", "control"}) {
		t.Errorf("Diagnosis: %v", diag)
	}

	lobe, _ := tab.Column("lobe")
	if !reflect.DeepEqual(lobe, []string{"Frontal", "Frontal", "Temporal"}) {
		t.Errorf("Lobe: %v", lobe)
	}
}

func TestTidyPrefersReferenceSpelling(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader("sample,diagnosis,lobe\n" +
		"S1,control,frontal\n" +
		"S2,Control,Frontal\n" +
		"S3,fcd iib,Frontal\n" +
		"S4,FCDIIb,frontal\n"))
	if err != nil {
		t.Fatal(err)
	}

	err = tab.Tidy(TidyOptions{
		Aliases:   map[string]string{"FCD IIb": "FCDIIb"},
		Reference: map[string]string{"Diagnosis": "Control"},
	})
	if err != nil {
		t.Fatal(err)
	}

	diag, _ := tab.Column("diagnosis")
	if !reflect.DeepEqual(diag, []string{"Control", "Control", "FCDIIb", "FCDIIb"}) {
		t.Errorf("Diagnosis: %v", diag)
	}

	// No reference for lobe, so the first spelling still wins.
	lobe, _ := tab.Column("lobe")
	if !reflect.DeepEqual(lobe, []string{"frontal", "frontal", "frontal", "frontal"}) {
		t.Errorf("Lobe: %v", lobe)
	}

	levels, err := tab.Levels("diagnosis", "Control")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(levels, []string{"Control", "FCDIIb"}) {
		t.Errorf("Levels: %v", levels)
	}
}

func TestReadDelimitedByteOrderMark(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader("\ufeffsample,diagnosis,lobe\nS1,Control,Frontal\nS2,FCDIIb,Temporal\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tab.IDs(), []string{"S1", "S2"}) {
		t.Errorf("IDs: %v", tab.IDs())
	}
}

func TestLevels(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}
	if err := tab.Tidy(TidyOptions{}); err != nil {
		t.Fatal(err)
	}

	levels, err := tab.Levels("diagnosis", "control")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(levels, []string{"control", "FCD IIb"}) {
		t.Errorf("Levels: %v", levels)
	}

	if _, err := tab.Levels("diagnosis", "Nope"); err == nil {
		t.Error("Expected an error for an unknown reference level")
	}
}

func TestAlign(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}

	m := &counts.Matrix{
		Genes:   []string{"G1", "G2"},
		Samples: []string{"S1", "S2", "S3"},
		Values:  [][]int{{1, 2, 3}, {4, 5, 6}},
	}

	aligned, err := Align(m, tab)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(aligned.Samples, tab.IDs()) {
		t.Errorf("Column order %v does not match metadata %v", aligned.Samples, tab.IDs())
	}
	if !reflect.DeepEqual(aligned.Values, [][]int{{3, 1, 2}, {6, 4, 5}}) {
		t.Errorf("Values were not carried with their columns: %v", aligned.Values)
	}
	if err := CheckAligned(aligned, tab); err != nil {
		t.Error(err)
	}
	if err := CheckAligned(m, tab); err == nil {
		t.Error("Expected the unaligned matrix to fail the check")
	}
}

func TestAlignMismatch(t *testing.T) {
	tab, err := ReadDelimited(strings.NewReader(metadataCSV))
	if err != nil {
		t.Fatal(err)
	}

	m := &counts.Matrix{
		Genes:   []string{"G1"},
		Samples: []string{"S1", "S2", "S4"},
		Values:  [][]int{{1, 2, 3}},
	}

	_, err = Align(m, tab)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected a *MismatchError, got %v", err)
	}
	if !reflect.DeepEqual(mismatch.MissingFromCounts, []string{"S3"}) ||
		!reflect.DeepEqual(mismatch.MissingFromMetadata, []string{"S4"}) {
		t.Errorf("Unexpected mismatch: %+v", mismatch)
	}
	if !strings.Contains(err.Error(), "S4") {
		t.Errorf("Error message should name the missing sample: %s", err)
	}
}

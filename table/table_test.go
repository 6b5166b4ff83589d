package table

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

type row struct {
	Name  string `csv:"name"`
	Value Float  `csv:"value"`
}

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1, "1"},
		{0.1234567, "0.123457"},
		{123456789, "1.23457e+08"},
		{1.5e-12, "1.5e-12"},
		{math.NaN(), "NA"},
	}

	for _, c := range cases {
		if got := FormatFloat(c.in); got != c.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := []*row{
		{"a", 3.14159265},
		{"b", NaN()},
		{"c", -2e-30},
	}

	var buf bytes.Buffer
	if err := Write(&buf, &in); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buf.String(), "name,value\n") {
		t.Fatalf("unexpected header in %q", buf.String())
	}
	if !strings.Contains(buf.String(), "b,NA\n") {
		t.Errorf("missing value not written as NA: %q", buf.String())
	}

	var out []*row
	if err := Read(&buf, &out); err != nil {
		t.Fatal(err)
	}

	if len(out) != len(in) {
		t.Fatalf("read %d rows, wrote %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Name != in[i].Name {
			t.Errorf("row %d: name %q, want %q", i, out[i].Name, in[i].Name)
		}
		want := Round(float64(in[i].Value))
		got := float64(out[i].Value)
		if math.IsNaN(want) != math.IsNaN(got) || (!math.IsNaN(want) && got != want) {
			t.Errorf("row %d: value %v, want %v", i, got, want)
		}
	}
}

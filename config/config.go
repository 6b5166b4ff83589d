// Package config reads the JSON run configuration of the pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/icza/gox/imagex/colorx"
)

// Contrast names one pairwise comparison between two levels of a factor.
type Contrast struct {
	// Name is used in output file names. Defaults to
	// "<factor>_<numerator>_vs_<denominator>".
	Name        string `json:"name"`
	Factor      string `json:"factor"`
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`

	// FoldChange is the linear fold-change threshold (e.g. 1.5 or 3). It
	// is converted to LFCCutoff when LFCCutoff is unset.
	FoldChange float64 `json:"fold_change"`
	LFCCutoff  float64 `json:"lfc_cutoff"`
}

// Enrichment configures the gene-set enrichment stage.
type Enrichment struct {
	// Modes lists "gsea" and/or "ora". Empty disables enrichment.
	Modes []string `json:"modes"`

	GMTPath  string `json:"gmt"`
	OBOPath  string `json:"obo"`
	Ontology string `json:"ontology"`

	MinSetSize    int     `json:"min_set_size"`
	MaxSetSize    int     `json:"max_set_size"`
	Permutations  int     `json:"permutations"`
	Seed          int64   `json:"seed"`
	PAdjustCutoff float64 `json:"padjust_cutoff"`

	// SimplifyCutoff is the similarity above which redundant terms are
	// dropped.
	SimplifyCutoff float64 `json:"simplify_cutoff"`

	// ORADirection selects the ORA query: "up", "down" or "both".
	ORADirection string `json:"ora_direction"`

	// GeneKey picks the identifier matched against gene sets: "symbol" or
	// "id".
	GeneKey string `json:"gene_key"`

	BarplotTop int `json:"barplot_top"`
}

// JSONConfig is the full run configuration.
type JSONConfig struct {
	ConfigPath string `json:"-"`

	CountsPath   string `json:"counts"`
	MetadataPath string `json:"metadata"`
	IDMapPath    string `json:"idmap"`
	IDMapPolicy  string `json:"idmap_policy"`

	// DropUnmapped renames count rows to symbols before fitting, dropping
	// rows without a symbol.
	DropUnmapped bool `json:"drop_unmapped"`

	OutputPath string `json:"output"`
	SQLitePath string `json:"sqlite"`

	Design    string            `json:"design"`
	Reference map[string]string `json:"reference"`
	Aliases   map[string]string `json:"aliases"`
	Contrasts []Contrast        `json:"contrasts"`

	// ReducedDesign, when set, adds a likelihood-ratio test against it.
	ReducedDesign string `json:"reduced_design"`

	Alpha       float64 `json:"alpha"`
	MinCount    int     `json:"min_count"`
	MinSamples  int     `json:"min_samples"`
	LabelCutoff float64 `json:"label_cutoff"`

	// Annotations are the metadata columns drawn above the heatmap.
	Annotations []string `json:"annotations"`

	// Palette maps factor -> level -> hex color.
	Palette map[string]map[string]string `json:"palette"`

	Enrichment Enrichment `json:"enrichment"`
}

// Default returns the configuration used for anything a file leaves unset.
func Default() JSONConfig {
	return JSONConfig{
		IDMapPolicy: "drop-ambiguous",
		OutputPath:  "results",
		Design:      "~ lobe + diagnosis",
		Reference:   map[string]string{"diagnosis": "Control"},
		Contrasts: []Contrast{
			{Factor: "diagnosis", Numerator: "FCDIIb", Denominator: "Control", FoldChange: 1.5},
		},
		Alpha:       0.1,
		MinCount:    10,
		MinSamples:  5,
		LabelCutoff: 2.5,
		Annotations: []string{"diagnosis", "lobe"},
		Enrichment: Enrichment{
			Ontology:       "BP",
			MinSetSize:     10,
			MaxSetSize:     500,
			Permutations:   1000,
			Seed:           1,
			PAdjustCutoff:  0.05,
			SimplifyCutoff: 0.7,
			ORADirection:   "up",
			GeneKey:        "symbol",
			BarplotTop:     20,
		},
	}
}

// ParseJSONConfigFromPath reads a config file over the defaults.
func ParseJSONConfigFromPath(path string) (JSONConfig, error) {
	f, err := os.Open(expandHomeDir(path))
	if err != nil {
		return Default(), pfx.Err(err)
	}
	defer f.Close()

	out, err := ParseJSONConfig(f)
	out.ConfigPath = expandHomeDir(path)
	return out, err
}

// ParseJSONConfig decodes, normalizes and validates a config.
func ParseJSONConfig(r io.Reader) (JSONConfig, error) {
	out := Default()

	// A file that sets contrasts replaces the default list.
	out.Contrasts = nil

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
		return out, pfx.Err(err)
	}

	if len(out.Contrasts) == 0 {
		out.Contrasts = Default().Contrasts
	}

	out.Normalize()

	return out, out.Validate()
}

// Normalize expands ~ in paths, lower-cases colors and fills contrast names
// and cutoffs.
func (c *JSONConfig) Normalize() {
	c.CountsPath = expandHomeDir(c.CountsPath)
	c.MetadataPath = expandHomeDir(c.MetadataPath)
	c.IDMapPath = expandHomeDir(c.IDMapPath)
	c.OutputPath = expandHomeDir(c.OutputPath)
	c.SQLitePath = expandHomeDir(c.SQLitePath)
	c.Enrichment.GMTPath = expandHomeDir(c.Enrichment.GMTPath)
	c.Enrichment.OBOPath = expandHomeDir(c.Enrichment.OBOPath)

	for factor, levels := range c.Palette {
		for level, hex := range levels {
			levels[level] = strings.ToLower(strings.TrimSpace(hex))
		}
		c.Palette[factor] = levels
	}

	for i, ct := range c.Contrasts {
		if ct.LFCCutoff == 0 && ct.FoldChange > 0 {
			ct.LFCCutoff = math.Log2(ct.FoldChange)
		}
		if ct.LFCCutoff == 0 {
			ct.LFCCutoff = math.Log2(1.5)
		}
		if ct.Name == "" {
			ct.Name = ct.Factor + "_" + ct.Numerator + "_vs_" + ct.Denominator
		}
		ct.Name = safeName(ct.Name)
		c.Contrasts[i] = ct
	}

	for i, m := range c.Enrichment.Modes {
		c.Enrichment.Modes[i] = strings.ToLower(strings.TrimSpace(m))
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *JSONConfig) Validate() error {
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return fmt.Errorf("alpha must be in (0, 1), got %v", c.Alpha)
	}
	if c.MinCount < 0 || c.MinSamples < 0 {
		return fmt.Errorf("min_count and min_samples must be non-negative")
	}

	seen := make(map[string]struct{})
	for _, ct := range c.Contrasts {
		if ct.Factor == "" || ct.Numerator == "" || ct.Denominator == "" {
			return fmt.Errorf("contrast %q needs factor, numerator and denominator", ct.Name)
		}
		if ct.LFCCutoff < 0 {
			return fmt.Errorf("contrast %s: negative lfc_cutoff", ct.Name)
		}
		if strings.EqualFold(ct.Name, LRTName) {
			return fmt.Errorf("contrast name %q is reserved for the likelihood ratio test output", ct.Name)
		}
		if _, dup := seen[ct.Name]; dup {
			return fmt.Errorf("contrast name %s is used twice", ct.Name)
		}
		seen[ct.Name] = struct{}{}
	}

	for factor, levels := range c.Palette {
		for level, hex := range levels {
			if _, err := colorx.ParseHexColor(hex); err != nil {
				return fmt.Errorf("palette %s/%s: %q is not a hex color", factor, level, hex)
			}
		}
	}

	e := c.Enrichment
	for _, m := range e.Modes {
		if m != "gsea" && m != "ora" {
			return fmt.Errorf("unknown enrichment mode %q; use gsea or ora", m)
		}
	}
	if len(e.Modes) > 0 {
		if e.GMTPath == "" {
			return fmt.Errorf("enrichment needs a gmt file")
		}
		switch e.ORADirection {
		case "up", "down", "both":
		default:
			return fmt.Errorf("ora_direction must be up, down or both, got %q", e.ORADirection)
		}
		switch e.GeneKey {
		case "symbol", "id":
		default:
			return fmt.Errorf("gene_key must be symbol or id, got %q", e.GeneKey)
		}
		if e.SimplifyCutoff <= 0 || e.SimplifyCutoff > 1 {
			return fmt.Errorf("simplify_cutoff must be in (0, 1], got %v", e.SimplifyCutoff)
		}
	}

	return nil
}

// LRTName labels the likelihood ratio test outputs, so no contrast may use
// it.
const LRTName = "lrt"

// HasMode reports whether an enrichment mode is enabled.
func (e Enrichment) HasMode(mode string) bool {
	for _, m := range e.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// safeName makes a contrast name usable as a file name.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}

// Via https://stackoverflow.com/a/17617721/199475
func expandHomeDir(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}

	dir := usr.HomeDir

	if path == "~" {
		path = dir
	} else if strings.HasPrefix(path, "~/") {
		// Use strings.HasPrefix so we don't match paths like
		// "/something/~/something/"
		path = filepath.Join(dir, path[2:])
	}

	return path
}

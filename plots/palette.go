// Package plots renders the pipeline's figures as SVG: the sample distance
// heatmap, volcano plots and enrichment bar plots.
package plots

import (
	"fmt"
	"strings"

	"github.com/icza/gox/imagex/colorx"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// defaultColors cycle for levels without a configured color.
var defaultColors = []drawing.Color{
	{R: 27, G: 158, B: 119, A: 255},
	{R: 217, G: 95, B: 2, A: 255},
	{R: 117, G: 112, B: 179, A: 255},
	{R: 231, G: 41, B: 138, A: 255},
	{R: 102, G: 166, B: 30, A: 255},
	{R: 230, G: 171, B: 2, A: 255},
	{R: 166, G: 118, B: 29, A: 255},
	{R: 102, G: 102, B: 102, A: 255},
}

// Palette maps (factor, level) to a color.
type Palette struct {
	colors map[string]map[string]drawing.Color
}

// NewPalette parses hex colors keyed by factor then level, e.g.
// {"diagnosis": {"Control": "#1b9e77"}}.
func NewPalette(hex map[string]map[string]string) (*Palette, error) {
	p := &Palette{colors: make(map[string]map[string]drawing.Color)}
	for factor, levels := range hex {
		for level, h := range levels {
			c, err := colorx.ParseHexColor(h)
			if err != nil {
				return nil, fmt.Errorf("palette %s/%s: %w", factor, level, err)
			}
			p.Set(factor, level, drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return p, nil
}

// Set assigns a color.
func (p *Palette) Set(factor, level string, c drawing.Color) {
	key := strings.ToLower(factor)
	if p.colors[key] == nil {
		p.colors[key] = make(map[string]drawing.Color)
	}
	p.colors[key][level] = c
}

// Lookup returns the configured color, if any.
func (p *Palette) Lookup(factor, level string) (drawing.Color, bool) {
	if p == nil {
		return drawing.Color{}, false
	}
	c, ok := p.colors[strings.ToLower(factor)][level]
	return c, ok
}

// Color returns the configured color, or the default for the level's index.
func (p *Palette) Color(factor, level string, index int) drawing.Color {
	if c, ok := p.Lookup(factor, level); ok {
		return c
	}
	if index < 0 {
		index = 0
	}
	return defaultColors[index%len(defaultColors)]
}

// Hex renders a color as #rrggbb.
func Hex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

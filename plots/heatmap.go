package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Annotation is one categorical strip drawn above the heatmap.
type Annotation struct {
	Name string

	// Values holds one level per sample, in the same order as the labels.
	Values []string

	// Levels fixes legend order and default colors.
	Levels []string
}

// HeatmapOptions control the sample distance heatmap.
type HeatmapOptions struct {
	Title       string
	CellSize    int
	Annotations []Annotation
	Palette     *Palette
}

const (
	heatmapFontSize = 10.0
	stripHeight     = 14
	margin          = 12
)

// Blues ramp endpoints: small distances are dark.
var (
	heatLow  = drawing.Color{R: 8, G: 48, B: 107, A: 255}
	heatHigh = drawing.Color{R: 247, G: 251, B: 255, A: 255}
)

// DistanceHeatmap draws a clustered sample distance matrix. Rows and columns
// are reordered by complete-linkage clustering of dist.
func DistanceHeatmap(w io.Writer, labels []string, dist [][]float64, opts HeatmapOptions) error {
	n := len(labels)
	if n == 0 || len(dist) != n {
		return fmt.Errorf("heatmap needs a square distance matrix matching %d labels", n)
	}
	for _, a := range opts.Annotations {
		if len(a.Values) != n {
			return fmt.Errorf("annotation %s has %d values for %d samples", a.Name, len(a.Values), n)
		}
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 28
	}
	cell := opts.CellSize

	order := CompleteLinkageOrder(dist)

	flat := make([]float64, 0, n*n)
	for _, row := range dist {
		flat = append(flat, row...)
	}
	maxDist, err := stats.Max(flat)
	if err != nil {
		return pfx.Err(err)
	}

	labelWidth := 0
	for _, l := range labels {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}
	labelWidth = labelWidth*7 + 8

	titleHeight := 0
	if opts.Title != "" {
		titleHeight = 24
	}

	gridX := margin
	gridY := margin + titleHeight + len(opts.Annotations)*(stripHeight+2) + 4
	legendX := gridX + n*cell + labelWidth + margin
	width := legendX + 160
	height := gridY + n*cell + labelWidth + margin
	if minHeight := gridY + legendHeight(opts.Annotations) + margin; height < minHeight {
		height = minHeight
	}

	r, err := chart.SVG(width, height)
	if err != nil {
		return pfx.Err(err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return pfx.Err(err)
	}
	r.SetFont(font)
	r.SetFontSize(heatmapFontSize)
	r.SetFontColor(drawing.ColorBlack)
	r.SetStrokeWidth(0)

	if opts.Title != "" {
		r.SetFontSize(14)
		r.Text(opts.Title, margin, margin+14)
		r.SetFontSize(heatmapFontSize)
	}

	// Annotation strips.
	for k, a := range opts.Annotations {
		y := margin + titleHeight + k*(stripHeight+2)
		for col, idx := range order {
			fillRect(r, opts.Palette.Color(a.Name, a.Values[idx], indexOf(a.Levels, a.Values[idx])), gridX+col*cell, y, cell, stripHeight)
		}
		r.SetFontColor(drawing.ColorBlack)
		r.Text(a.Name, gridX+n*cell+4, y+stripHeight-3)
	}

	// Distance cells.
	for row, i := range order {
		for col, j := range order {
			t := 0.0
			if maxDist > 0 {
				t = dist[i][j] / maxDist
			}
			fillRect(r, lerp(heatLow, heatHigh, t), gridX+col*cell, gridY+row*cell, cell, cell)
		}
	}

	// Row labels on the right, column labels rotated below.
	r.SetFontColor(drawing.ColorBlack)
	for row, i := range order {
		r.Text(labels[i], gridX+n*cell+4, gridY+row*cell+cell/2+4)
	}
	r.SetTextRotation(math.Pi / 2)
	for col, j := range order {
		r.Text(labels[j], gridX+col*cell+cell/2-4, gridY+n*cell+4)
	}
	r.ClearTextRotation()

	// Legends.
	y := gridY
	for _, a := range opts.Annotations {
		r.SetFontColor(drawing.ColorBlack)
		r.Text(a.Name, legendX, y+10)
		y += 14
		for k, level := range a.Levels {
			fillRect(r, opts.Palette.Color(a.Name, level, k), legendX, y, 12, 12)
			r.SetFontColor(drawing.ColorBlack)
			r.Text(level, legendX+16, y+10)
			y += 16
		}
		y += 8
	}

	const steps = 5
	r.Text("distance", legendX, y+10)
	y += 14
	for s := 0; s <= steps; s++ {
		t := float64(s) / steps
		fillRect(r, lerp(heatLow, heatHigh, t), legendX, y, 12, 12)
		r.SetFontColor(drawing.ColorBlack)
		r.Text(fmt.Sprintf("%.3g", t*maxDist), legendX+16, y+10)
		y += 14
	}

	return pfx.Err(r.Save(w))
}

func legendHeight(annotations []Annotation) int {
	h := 14 + 6*14
	for _, a := range annotations {
		h += 14 + 16*len(a.Levels) + 8
	}
	return h
}

func fillRect(r chart.Renderer, c drawing.Color, x, y, w, h int) {
	r.SetFillColor(c)
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.Close()
	r.Fill()
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func indexOf(haystack []string, needle string) int {
	for i, v := range haystack {
		if v == needle {
			return i
		}
	}
	return -1
}

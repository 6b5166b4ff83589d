package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff/results"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// StatusFactor is the palette key for volcano point colors.
const StatusFactor = "status"

// VolcanoOptions control the volcano plot.
type VolcanoOptions struct {
	Title      string
	Thresholds results.Thresholds

	// LabelCutoff is the |log2 fold change| above which significant genes
	// are labeled.
	LabelCutoff float64

	Palette       *Palette
	Width, Height int
}

var statusOrder = []results.Status{results.NotSignificant, results.Down, results.Up}

var defaultStatusColors = map[results.Status]drawing.Color{
	results.Up:             {R: 215, G: 48, B: 31, A: 255},
	results.Down:           {R: 33, G: 102, B: 172, A: 255},
	results.NotSignificant: {R: 160, G: 160, B: 160, A: 255},
}

// Volcano plots log2 fold change against -log10 adjusted p-value with dashed
// threshold lines, points colored by status and labels on strongly changed
// significant genes. Rows with a missing fold change or adjusted p-value are
// not drawn.
func Volcano(w io.Writer, rows []*results.Row, opts VolcanoOptions) error {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 640
	}

	type pts struct{ x, y []float64 }
	byStatus := make(map[results.Status]*pts)
	for _, s := range statusOrder {
		byStatus[s] = &pts{}
	}

	maxY, maxAbsX := 0.0, opts.Thresholds.LFCCutoff
	for _, r := range rows {
		if r.Log2FoldChange.IsNA() || r.PAdj.IsNA() {
			continue
		}
		y := -math.Log10(float64(r.PAdj))
		if !math.IsInf(y, 1) && y > maxY {
			maxY = y
		}
		if x := math.Abs(float64(r.Log2FoldChange)); x > maxAbsX {
			maxAbsX = x
		}
	}
	threshY := -math.Log10(opts.Thresholds.Alpha)
	if maxY < threshY {
		maxY = threshY
	}
	capY := maxY * 1.05
	if capY == 0 {
		capY = 1
	}
	maxAbsX *= 1.05

	labels := make([]chart.Value2, 0)
	for _, r := range rows {
		if r.Log2FoldChange.IsNA() || r.PAdj.IsNA() {
			continue
		}
		x := float64(r.Log2FoldChange)
		y := math.Min(-math.Log10(float64(r.PAdj)), capY)

		p := byStatus[r.Status]
		if p == nil {
			p = byStatus[results.NotSignificant]
		}
		p.x = append(p.x, x)
		p.y = append(p.y, y)

		if r.Significant && math.Abs(x) > opts.LabelCutoff {
			labels = append(labels, chart.Value2{XValue: x, YValue: y, Label: r.Label()})
		}
	}

	series := make([]chart.Series, 0)
	for _, s := range statusOrder {
		p := byStatus[s]
		if len(p.x) == 0 {
			continue
		}
		c := defaultStatusColors[s]
		if configured, ok := opts.Palette.Lookup(StatusFactor, string(s)); ok {
			c = configured
		}
		series = append(series, chart.ContinuousSeries{
			Name: fmt.Sprintf("%s (%d)", s, len(p.x)),
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2.5,
				DotColor:    c,
			},
			XValues: p.x,
			YValues: p.y,
		})
	}

	dashed := chart.Style{
		StrokeColor:     drawing.Color{R: 60, G: 60, B: 60, A: 255},
		StrokeWidth:     1,
		StrokeDashArray: []float64{5, 5},
	}
	cut := opts.Thresholds.LFCCutoff
	series = append(series,
		chart.ContinuousSeries{Style: dashed, XValues: []float64{-cut, -cut}, YValues: []float64{0, capY}},
		chart.ContinuousSeries{Style: dashed, XValues: []float64{cut, cut}, YValues: []float64{0, capY}},
		chart.ContinuousSeries{Style: dashed, XValues: []float64{-maxAbsX, maxAbsX}, YValues: []float64{threshY, threshY}},
	)
	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{Annotations: labels})
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "log2 fold change",
			Range: &chart.ContinuousRange{Min: -maxAbsX, Max: maxAbsX},
		},
		YAxis: chart.YAxis{
			Name:  "-log10 adjusted p-value",
			Range: &chart.ContinuousRange{Min: 0, Max: capY},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return pfx.Err(graph.Render(chart.SVG, w))
}

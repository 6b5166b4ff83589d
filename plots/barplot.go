package plots

import (
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rnadiff/enrich"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const maxBarLabel = 40

// EnrichmentBarplot draws -log10(p.adjust) of the top terms, in the order
// given (results are expected sorted by adjusted p-value).
func EnrichmentBarplot(w io.Writer, rs []*enrich.Result, top int, title string) error {
	if len(rs) == 0 {
		return fmt.Errorf("no enrichment results to plot")
	}
	if top > 0 && len(rs) > top {
		rs = rs[:top]
	}

	bars := make([]chart.Value, 0, len(rs))
	maxV := 0.0
	for _, r := range rs {
		v := 0.0
		if !r.PAdjust.IsNA() && r.PAdjust > 0 {
			v = -math.Log10(float64(r.PAdjust))
		}
		if v > maxV {
			maxV = v
		}

		label := r.Description
		if label == "" {
			label = r.ID
		}
		if len(label) > maxBarLabel {
			label = label[:maxBarLabel-3] + "..."
		}

		bars = append(bars, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{
				FillColor:   drawing.Color{R: 33, G: 102, B: 172, A: 255},
				StrokeColor: drawing.Color{R: 33, G: 102, B: 172, A: 255},
				StrokeWidth: 0,
			},
		})
	}
	if maxV == 0 {
		maxV = 1
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    120 + 60*len(bars),
		Height:   640,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Bottom: 260},
		},
		XAxis: chart.Style{
			TextRotationDegrees: 90,
		},
		YAxis: chart.YAxis{
			Name:  "-log10 p.adjust",
			Range: &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
		},
		Bars: bars,
	}

	return pfx.Err(graph.Render(chart.SVG, w))
}

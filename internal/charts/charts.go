// Package charts renders dashboard charts as PNG images.
package charts

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"folio/internal/core"
	"folio/internal/dashboard"
)

var sliceColors = []drawing.Color{
	{R: 77, G: 184, B: 255, A: 255},
	{R: 250, G: 134, B: 94, A: 255},
	{R: 165, G: 235, B: 91, A: 255},
	{R: 252, G: 201, B: 100, A: 255},
	{R: 208, G: 134, B: 255, A: 255},
	{R: 120, G: 144, B: 156, A: 255},
	{R: 255, G: 112, B: 150, A: 255},
}

// History draws the monthly wealth history as a bar chart.
func History(w io.Writer, history []dashboard.HistoryPoint, currency string) error {
	bars := make([]chart.Value, 0, len(history))
	lo, hi := 0.0, 0.0
	for _, p := range history {
		v := p.Value.InexactFloat64()
		lo, hi = min(lo, v), max(hi, v)
		bars = append(bars, chart.Value{
			Label: p.Label,
			Value: v,
			Style: chart.Style{FillColor: sliceColors[0], StrokeColor: sliceColors[0]},
		})
	}
	if hi <= lo {
		// flat series: give the axis a non-empty range
		hi = lo + 1
	}

	graph := chart.BarChart{
		Title: "Wealth history",
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:      900,
		Height:     400,
		BarWidth:   40,
		BarSpacing: 20,
		Bars:       bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.1},
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return core.FormatMoney(decimal.NewFromFloat(f).Round(0), currency)
				}
				return ""
			},
		},
	}
	return graph.Render(chart.PNG, w)
}

// Allocation draws the allocation by account type as a pie.
// Slices with no positive value are skipped.
func Allocation(w io.Writer, allocation []dashboard.AllocationSlice) error {
	values := make([]chart.Value, 0, len(allocation))
	for i, a := range allocation {
		if !a.Value.IsPositive() {
			continue
		}
		values = append(values, chart.Value{
			Label: a.Name + " " + a.Percentage.StringFixed(1) + "%",
			Value: a.Value.InexactFloat64(),
			Style: chart.Style{FillColor: sliceColors[i%len(sliceColors)]},
		})
	}
	if len(values) == 0 {
		values = append(values, chart.Value{
			Label: "No data",
			Value: 1,
			Style: chart.Style{FillColor: drawing.ColorFromHex("dddddd")},
		})
	}

	pie := chart.PieChart{
		Title:  "Allocation",
		Width:  500,
		Height: 500,
		Values: values,
	}
	return pie.Render(chart.PNG, w)
}

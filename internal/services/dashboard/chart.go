package dashboard

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Category bars cycle through this palette.
var barPalette = []string{
	"2563eb", // blue-600
	"dc2626", // red-600
	"16a34a", // green-600
	"d97706", // amber-600
	"7c3aed", // violet-600
	"0891b2", // cyan-600
}

const maxChartBars = 8

// SpendingChart renders the per-category expense totals as a PNG bar chart.
func (s *Service) SpendingChart() ([]byte, error) {
	spend := categorySpend(s.ledger.Snapshot().Transactions)
	if len(spend) == 0 {
		return nil, fmt.Errorf("no expense data to chart")
	}
	if len(spend) > maxChartBars {
		spend = spend[:maxChartBars]
	}

	bars := make([]chart.Value, len(spend))
	for i, cs := range spend {
		bars[i] = chart.Value{
			Label: cs.Category,
			Value: cs.Total,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex(barPalette[i%len(barPalette)]),
				StrokeColor: drawing.ColorFromHex(barPalette[i%len(barPalette)]),
			},
		}
	}

	graph := chart.BarChart{
		Title:    "Spending by Category",
		Width:    900,
		Height:   400,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

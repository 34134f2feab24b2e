package portfolio

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// ErrNothingToChart is returned when a portfolio holds no value to draw.
var ErrNothingToChart = errors.New("portfolio has no value to chart")

// allocation is the summed current value of one asset.
type allocation struct {
	symbol string
	value  decimal.Decimal
}

// allocations groups positions by asset, largest first.
func allocations(p *models.Portfolio) []allocation {
	index := make(map[string]int)
	var out []allocation
	for _, pos := range p.Positions {
		i, ok := index[pos.AssetSymbol]
		if !ok {
			i = len(out)
			index[pos.AssetSymbol] = i
			out = append(out, allocation{symbol: pos.AssetSymbol})
		}
		out[i].value = out[i].value.Add(pos.CurrentValue)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].value.GreaterThan(out[b].value)
	})
	return out
}

// RenderAllocationChart renders a PNG bar chart of current value per asset.
// Mixed-currency portfolios are drawn unconverted, as the totals are.
func (s *Service) RenderAllocationChart(p *models.Portfolio) ([]byte, error) {
	return RenderAllocationChart(p)
}

// RenderAllocationChart renders a PNG bar chart of current value per asset.
func RenderAllocationChart(p *models.Portfolio) ([]byte, error) {
	if p == nil || !p.TotalValue.IsPositive() {
		return nil, ErrNothingToChart
	}

	allocs := allocations(p)
	top := allocs[0].value.InexactFloat64()
	bars := make([]chart.Value, 0, len(allocs))
	for _, a := range allocs {
		bars = append(bars, chart.Value{
			Label: a.symbol,
			Value: a.value.InexactFloat64(),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("2563eb"), // blue-600
				StrokeColor: drawing.ColorFromHex("1d4ed8"),
				StrokeWidth: 1,
			},
		})
	}

	title := "Allocation"
	if p.MixedCurrencies {
		title = "Allocation (mixed currencies, unconverted)"
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
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

// Package charts renders bill trend charts as PNG images.
package charts

import (
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/rmax-ai/wattwise/pkg/forecast"
)

// Options control chart dimensions and theme.
type Options struct {
	Width  int
	Height int
	Theme  string
}

// DefaultOptions returns an 800x400 light chart.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 400, Theme: "light"}
}

// BillTrend draws the previous bills followed by the predicted bill, with
// the matching unit counts as a second series.
func BillTrend(p forecast.Prediction, opts Options) ([]byte, error) {
	if len(p.PreviousBills) == 0 || len(p.MonthNames) != len(p.PreviousBills)+1 {
		return nil, fmt.Errorf("prediction has %d bills and %d month labels", len(p.PreviousBills), len(p.MonthNames))
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.Theme == "" {
		opts.Theme = DefaultOptions().Theme
	}

	bills := append(append([]float64(nil), p.PreviousBills...), p.PredictedBill)
	units := append(append([]float64(nil), p.PreviousUnits...), p.PredictedUnits)

	r, err := charts.LineRender(
		[][]float64{bills, units},
		charts.TitleTextOptionFunc("Electricity Bill Trend"),
		charts.XAxisDataOptionFunc(p.MonthNames),
		charts.LegendLabelsOptionFunc([]string{"Bill", "Units (kWh)"}, charts.PositionRight),
		charts.ThemeOptionFunc(opts.Theme),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
		charts.PaddingOptionFunc(charts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render bill chart: %w", err)
	}

	buf, err := r.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

// CostReport exports the cost analysis. The regression, when present, is
// appended as a trailing row.
type CostReport struct {
	source   ReportSource
	analyzer *analysis.Analyzer
}

func NewCostReport(src ReportSource, a *analysis.Analyzer) *CostReport {
	return &CostReport{source: src, analyzer: a}
}

func (r *CostReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	entries, err := r.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	result, err := r.analyzer.Cost(entries)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(result.Appliances)+2)
	for _, e := range result.Appliances {
		rows = append(rows, []string{
			e.Name,
			strconv.Itoa(e.Hours),
			formatFloat(e.Cost),
			strconv.FormatFloat(e.Percentage, 'f', 1, 64),
		})
	}
	rows = append(rows, []string{"TOTAL", "", formatFloat(result.TotalCost), "100.0"})
	if result.Regression != nil {
		rows = append(rows, []string{
			"REGRESSION",
			"slope=" + strconv.FormatFloat(result.Regression.Slope, 'f', 4, 64),
			"intercept=" + strconv.FormatFloat(result.Regression.Intercept, 'f', 4, 64),
			"",
		})
	}

	return writeCSV([]string{"name", "hours", "cost", "percentage"}, rows)
}

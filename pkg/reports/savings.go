package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

// SavingsReport exports the savings report, highest usage first.
type SavingsReport struct {
	source   ReportSource
	analyzer *analysis.Analyzer
}

func NewSavingsReport(src ReportSource, a *analysis.Analyzer) *SavingsReport {
	return &SavingsReport{source: src, analyzer: a}
}

func (r *SavingsReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	entries, err := r.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	report, err := r.analyzer.Savings(entries)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(report.Appliances)+1)
	for _, e := range report.Appliances {
		rows = append(rows, []string{e.Name, strconv.Itoa(e.Hours), e.UsageLevel, formatFloat(e.Savings)})
	}
	rows = append(rows, []string{"TOTAL", "", "", formatFloat(report.TotalSavings)})

	return writeCSV([]string{"name", "hours", "usage_level", "savings"}, rows)
}

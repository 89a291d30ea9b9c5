package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

// UsageReport exports the hours report.
type UsageReport struct {
	source   ReportSource
	analyzer *analysis.Analyzer
}

func NewUsageReport(src ReportSource, a *analysis.Analyzer) *UsageReport {
	return &UsageReport{source: src, analyzer: a}
}

func (r *UsageReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	entries, err := r.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	report, err := r.analyzer.Hours(entries)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(report.Appliances)+1)
	for _, e := range report.Appliances {
		rows = append(rows, []string{
			e.Name,
			strconv.Itoa(e.Hours),
			strconv.FormatFloat(e.Percentage, 'f', 1, 64),
			e.UsageLevel,
		})
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(report.TotalHours), "100.0", ""})

	return writeCSV([]string{"name", "hours", "percentage", "usage_level"}, rows)
}

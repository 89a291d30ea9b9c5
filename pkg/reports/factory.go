package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType, src ReportSource, a *analysis.Analyzer) (Generator, error) {
	switch reportType {
	case ReportTypeUsage:
		return NewUsageReport(src, a), nil
	case ReportTypeCost:
		return NewCostReport(src, a), nil
	case ReportTypeSavings:
		return NewSavingsReport(src, a), nil
	case ReportTypeEvents:
		return NewEventReport(src), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

func writeCSV(headers []string, rows [][]string) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}
	return buf, nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

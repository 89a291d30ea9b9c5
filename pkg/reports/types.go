// Package reports renders ledger reports as CSV for export.
package reports

import (
	"context"
	"io"

	"github.com/rmax-ai/wattwise/pkg/ledger"
)

type ReportType string

const (
	ReportTypeUsage   ReportType = "report"
	ReportTypeCost    ReportType = "analysis"
	ReportTypeSavings ReportType = "mlreport"
	ReportTypeEvents  ReportType = "events"
)

type ReportParams struct {
	// Limit bounds the number of rows for event reports.
	Limit int
}

// ReportSource defines the ledger access required by reports.
type ReportSource interface {
	List(ctx context.Context) ([]ledger.Entry, error)
	RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error)
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}

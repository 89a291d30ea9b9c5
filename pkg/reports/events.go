package reports

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"
)

const defaultEventLimit = 100

// EventReport exports the ledger audit trail, newest first.
type EventReport struct {
	source ReportSource
}

func NewEventReport(src ReportSource) *EventReport {
	return &EventReport{source: src}
}

func (r *EventReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	events, err := r.source.RecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			string(e.EventID),
			e.TsEvent.Format(time.RFC3339),
			string(e.EventType),
			e.Name,
			strconv.Itoa(e.Hours),
		})
	}
	return writeCSV([]string{"event_id", "timestamp", "event_type", "name", "hours"}, rows)
}

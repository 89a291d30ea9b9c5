package client

import (
	"fmt"

	"github.com/rmax-ai/wattwise/pkg/analysis"
	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

// Re-exported response shapes so SDK users need only this package.
type (
	Entry         = ledger.Entry
	Event         = ledger.Event
	Prediction    = forecast.Prediction
	UsageEntry    = analysis.UsageEntry
	HoursReport   = analysis.HoursReport
	CostEntry     = analysis.CostEntry
	CostAnalysis  = analysis.CostAnalysis
	SavingsEntry  = analysis.SavingsEntry
	SavingsReport = analysis.SavingsReport
)

// Status represents the health check response.
type Status struct {
	Status string `json:"status"`
}

// ChatReply is the daemon's answer to a chatbot question.
type ChatReply struct {
	Success        bool   `json:"success"`
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Source         string `json:"source"`
}

// APIError is returned for non-2xx responses. Message carries the
// daemon's {"error": ...} text when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

type applianceResponse struct {
	Success    bool           `json:"success"`
	Appliances ledger.Listing `json:"appliances"`
}

type predictResponse struct {
	Success bool `json:"success"`
	forecast.Prediction
}

type sessionResponse struct {
	ConversationID string `json:"conversation_id"`
}

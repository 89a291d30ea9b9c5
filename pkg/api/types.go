package api

import (
	"encoding/json"

	"github.com/rmax-ai/wattwise/pkg/forecast"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

// ApplianceRequest matches the POST /api/appliances body schema. Hours is
// kept raw so numbers and numeric strings can both be accepted.
type ApplianceRequest struct {
	Appliance string          `json:"appliance"`
	Hours     json.RawMessage `json:"hours"`
}

// ApplianceResponse matches the response for POST and DELETE on /api/appliances.
type ApplianceResponse struct {
	Success    bool           `json:"success"`
	Appliances ledger.Listing `json:"appliances"`
}

// PredictRequest matches the POST /api/predict body schema.
type PredictRequest struct {
	Bills []json.RawMessage `json:"bills"`
}

// PredictResponse matches the response for POST /api/predict.
type PredictResponse struct {
	Success bool `json:"success"`
	forecast.Prediction
}

// ChatRequest matches the POST /api/chatbot body schema.
type ChatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse matches the response for POST /api/chatbot.
type ChatResponse struct {
	Success        bool   `json:"success"`
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Source         string `json:"source"`
}

// SessionResponse matches the response for POST /api/chatbot/sessions.
type SessionResponse struct {
	ConversationID string `json:"conversation_id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Package provider defines the contract for conversational model backends.
package provider

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Provider answers a question given the prior turns of a conversation.
type Provider interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string

	// Generate returns the model's answer to question. history is oldest
	// first and does not include question.
	Generate(ctx context.Context, history []Message, question string) (string, error)
}

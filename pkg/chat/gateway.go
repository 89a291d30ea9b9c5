// Package chat answers energy questions, first from a fixed set of canned
// replies and otherwise through a conversational provider.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/rmax-ai/wattwise/pkg/errs"
	"github.com/rmax-ai/wattwise/pkg/provider"
)

const (
	SourceCanned = "canned"

	serviceName = "chat"
)

var canned = map[string]string{
	"how to save energy?":  "Turn off unused appliances, use LED bulbs, and limit AC usage.",
	"why is my bill high?": "Check for high-consumption appliances and reduce their usage.",
}

// Reply is the answer to a single question.
type Reply struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Source         string `json:"source"`
}

// Gateway routes questions to canned answers or the provider.
type Gateway struct {
	provider provider.Provider
	sessions *Sessions
	limiter  *rate.Limiter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRateLimit throttles provider calls to rps per second. Non-positive
// values leave calls unthrottled.
func WithRateLimit(rps float64) Option {
	return func(g *Gateway) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithSessions uses s instead of a fresh session store.
func WithSessions(s *Sessions) Option {
	return func(g *Gateway) { g.sessions = s }
}

// NewGateway creates a Gateway. p may be nil, in which case only canned
// questions can be answered.
func NewGateway(p provider.Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider: p,
		sessions: NewSessions(),
		limiter:  rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sessions returns the gateway's conversation store.
func (g *Gateway) Sessions() *Sessions {
	return g.sessions
}

// Answer replies to question within conversationID. An empty id selects
// DefaultConversation.
func (g *Gateway) Answer(ctx context.Context, conversationID, question string) (Reply, error) {
	if question == "" {
		return Reply{}, errs.Validation("question", "No question provided")
	}
	if conversationID == "" {
		conversationID = DefaultConversation
	}

	if answer, ok := canned[strings.ToLower(question)]; ok {
		return Reply{Response: answer, ConversationID: conversationID, Source: SourceCanned}, nil
	}

	if g.provider == nil {
		return Reply{}, errs.Service(serviceName, errors.New("chat provider not configured"))
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return Reply{}, errs.Service(serviceName, err)
	}

	history := g.sessions.History(conversationID)
	answer, err := g.provider.Generate(ctx, history, question)
	if err != nil {
		slog.Warn("chat_provider_failed", "component", "chat", "provider", g.provider.Name(),
			"conversation_id", conversationID, "error", err)
		return Reply{}, errs.Service(g.provider.Name(), err)
	}

	g.sessions.Append(conversationID,
		provider.Message{Role: provider.RoleUser, Text: question},
		provider.Message{Role: provider.RoleModel, Text: answer},
	)
	return Reply{Response: answer, ConversationID: conversationID, Source: g.provider.Name()}, nil
}

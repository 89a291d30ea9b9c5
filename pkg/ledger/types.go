// Package ledger keeps the appliance → daily-hours bookkeeping and an
// append-only trail of changes to it.
package ledger

import (
	"context"
	"time"
)

// Hour bounds for a single appliance entry.
const (
	MinHours = 0
	MaxHours = 24
)

// Entry is one appliance and its daily hours of use.
type Entry struct {
	Name  string `json:"name"`
	Hours int    `json:"hours"`
}

// EventType represents the kind of ledger change.
type EventType string

const (
	EventTypeApplianceAdded   EventType = "appliance_added"
	EventTypeApplianceRemoved EventType = "appliance_removed"
)

// EventID is a unique identifier for an event.
type EventID string

// Event records a single change to the ledger.
type Event struct {
	EventID   EventID   `json:"event_id"`
	EventType EventType `json:"event_type"`
	Name      string    `json:"name"`
	Hours     int       `json:"hours"`
	TsEvent   time.Time `json:"ts_event"`
}

// Store is the persistence backend behind a Ledger. Implementations must be
// safe for concurrent use and list entries in insertion order; overwriting
// an existing name keeps its position.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	// Put inserts or overwrites entry and records evt atomically.
	Put(ctx context.Context, entry Entry, evt Event) error
	// Delete removes name and records evt. It reports false when name is absent.
	Delete(ctx context.Context, name string, evt Event) (bool, error)
	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	Close() error
}

// AsMap returns entries as a name → hours mapping.
func AsMap(entries []Entry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Hours
	}
	return m
}

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/wattwise/pkg/errs"
)

// ChangeFunc is notified with the full listing after every successful change.
type ChangeFunc func(ctx context.Context, entries []Entry)

// Ledger validates appliance bookkeeping requests and applies them to a Store.
type Ledger struct {
	store Store
	now   func() time.Time

	mu        sync.RWMutex
	listeners []ChangeFunc
}

// New creates a Ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// OnChange registers fn to be called after successful adds and removes.
func (l *Ledger) OnChange(fn ChangeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// List returns the current entries in insertion order.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	entries, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appliances: %w", err)
	}
	return entries, nil
}

// Add inserts or overwrites name with hours and returns the updated listing.
func (l *Ledger) Add(ctx context.Context, name string, hours int) ([]Entry, error) {
	if name == "" {
		return nil, errs.Validation("appliance", msgMissing)
	}
	if err := ValidateHours(hours); err != nil {
		return nil, err
	}

	evt := l.newEvent(EventTypeApplianceAdded, name, hours)
	if err := l.store.Put(ctx, Entry{Name: name, Hours: hours}, evt); err != nil {
		return nil, fmt.Errorf("failed to store appliance %q: %w", name, err)
	}
	slog.Debug("appliance_added", "component", "ledger", "appliance", name, "hours", hours)

	return l.afterChange(ctx)
}

// Remove deletes name and returns the updated listing.
func (l *Ledger) Remove(ctx context.Context, name string) ([]Entry, error) {
	evt := l.newEvent(EventTypeApplianceRemoved, name, 0)
	found, err := l.store.Delete(ctx, name, evt)
	if err != nil {
		return nil, fmt.Errorf("failed to delete appliance %q: %w", name, err)
	}
	if !found {
		return nil, errs.NotFound("Appliance", name)
	}
	slog.Debug("appliance_removed", "component", "ledger", "appliance", name)

	return l.afterChange(ctx)
}

// RecentEvents returns up to limit ledger events, newest first.
func (l *Ledger) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	events, err := l.store.RecentEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger events: %w", err)
	}
	return events, nil
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

func (l *Ledger) afterChange(ctx context.Context) ([]Entry, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	listeners := append([]ChangeFunc(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, entries)
	}
	return entries, nil
}

func (l *Ledger) newEvent(typ EventType, name string, hours int) Event {
	return Event{
		EventID:   EventID("evt_" + uuid.NewString()),
		EventType: typ,
		Name:      name,
		Hours:     hours,
		TsEvent:   l.now().UTC(),
	}
}

// Package ledgertest holds a conformance suite shared by ledger.Store
// implementations.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rmax-ai/wattwise/pkg/errs"
	"github.com/rmax-ai/wattwise/pkg/ledger"
)

// RunStoreTests runs the conformance suite. newStore must return an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	ctx := context.Background()

	t.Run("Add and list in insertion order", func(t *testing.T) {
		l := ledger.New(newStore(t))

		mustAdd(t, l, "Fan", 10)
		mustAdd(t, l, "TV", 3)
		entries := mustAdd(t, l, "Refrigerator", 24)

		want := []ledger.Entry{{Name: "Fan", Hours: 10}, {Name: "TV", Hours: 3}, {Name: "Refrigerator", Hours: 24}}
		if !reflect.DeepEqual(entries, want) {
			t.Errorf("got %+v, want %+v", entries, want)
		}
	})

	t.Run("Overwrite keeps one entry and its position", func(t *testing.T) {
		l := ledger.New(newStore(t))

		mustAdd(t, l, "Fan", 10)
		mustAdd(t, l, "TV", 3)
		entries := mustAdd(t, l, "Fan", 4)

		want := []ledger.Entry{{Name: "Fan", Hours: 4}, {Name: "TV", Hours: 3}}
		if !reflect.DeepEqual(entries, want) {
			t.Errorf("got %+v, want %+v", entries, want)
		}
	})

	t.Run("Add then remove restores prior state", func(t *testing.T) {
		l := ledger.New(newStore(t))

		mustAdd(t, l, "Fan", 10)
		before, err := l.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}

		mustAdd(t, l, "LED", 6)
		after, err := l.Remove(ctx, "LED")
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if !reflect.DeepEqual(before, after) {
			t.Errorf("got %+v, want %+v", after, before)
		}
	})

	t.Run("Remove missing", func(t *testing.T) {
		l := ledger.New(newStore(t))

		if _, err := l.Remove(ctx, "Ghost"); err == nil || err.Error() != "Appliance not found" {
			t.Errorf("expected Appliance not found, got %v", err)
		}
	})

	t.Run("Empty listing is non-nil", func(t *testing.T) {
		l := ledger.New(newStore(t))

		entries, err := l.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("expected empty non-nil listing, got %#v", entries)
		}
	})

	t.Run("Events newest first", func(t *testing.T) {
		l := ledger.New(newStore(t))

		mustAdd(t, l, "Fan", 10)
		time.Sleep(2 * time.Millisecond)
		if _, err := l.Remove(ctx, "Fan"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		events, err := l.RecentEvents(ctx, 10)
		if err != nil {
			t.Fatalf("RecentEvents failed: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].EventType != ledger.EventTypeApplianceRemoved || events[1].EventType != ledger.EventTypeApplianceAdded {
			t.Errorf("unexpected event order: %s, %s", events[0].EventType, events[1].EventType)
		}
		if events[1].Hours != 10 || events[1].Name != "Fan" {
			t.Errorf("unexpected added event %+v", events[1])
		}

		limited, err := l.RecentEvents(ctx, 1)
		if err != nil {
			t.Fatalf("RecentEvents failed: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected limit to apply, got %d events", len(limited))
		}
	})

	t.Run("Concurrent adds", func(t *testing.T) {
		l := ledger.New(newStore(t))

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := l.Add(ctx, fmt.Sprintf("appliance-%d", i), i%25); err != nil {
					t.Errorf("Add failed: %v", err)
				}
			}(i)
		}
		wg.Wait()

		entries, err := l.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 20 {
			t.Errorf("expected 20 entries, got %d", len(entries))
		}
	})

	t.Run("Concurrent add and remove of one name stay consistent", func(t *testing.T) {
		l := ledger.New(newStore(t))
		mustAdd(t, l, "TV", 3)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(2)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					if _, err := l.Add(ctx, "Fan", (w+i)%25); err != nil {
						t.Errorf("Add failed: %v", err)
					}
				}
			}(w)
			go func() {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					if _, err := l.Remove(ctx, "Fan"); err != nil && !isNotFound(err) {
						t.Errorf("Remove failed: %v", err)
					}
				}
			}()
		}
		wg.Wait()

		entries, err := l.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		listed := false
		for _, e := range entries {
			if e.Name == "Fan" {
				listed = true
			}
		}

		_, err = l.Remove(ctx, "Fan")
		switch {
		case listed && err != nil:
			t.Fatalf("Fan listed but Remove failed: %v", err)
		case !listed && !isNotFound(err):
			t.Fatalf("Fan not listed but Remove returned %v", err)
		}

		entries, err = l.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := []ledger.Entry{{Name: "TV", Hours: 3}}
		if !reflect.DeepEqual(entries, want) {
			t.Errorf("got %+v, want %+v", entries, want)
		}
	})
}

func isNotFound(err error) bool {
	var nf *errs.NotFoundError
	return errors.As(err, &nf)
}

func mustAdd(t *testing.T, l *ledger.Ledger, name string, hours int) []ledger.Entry {
	t.Helper()
	entries, err := l.Add(context.Background(), name, hours)
	if err != nil {
		t.Fatalf("Add(%s, %d) failed: %v", name, hours, err)
	}
	return entries
}

package redis_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rmax-ai/wattwise/pkg/ledger"
	"github.com/rmax-ai/wattwise/pkg/ledger/ledgertest"
	"github.com/rmax-ai/wattwise/pkg/ledger/redis"
)

func newTestStore(t *testing.T) *redis.Store {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := redis.NewStore(client, "test")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	ledgertest.RunStoreTests(t, func(t *testing.T) ledger.Store {
		return newTestStore(t)
	})
}

func TestRedisStore_SharedPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	a := redis.NewStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "home")
	b := redis.NewStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "home")
	defer a.Close()
	defer b.Close()

	if _, err := ledger.New(a).Add(t.Context(), "TV", 3); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := b.List(t.Context())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "TV" {
		t.Errorf("Expected TV visible through second store, got %+v", entries)
	}
}

func TestDial_Unreachable(t *testing.T) {
	if _, err := redis.Dial(t.Context(), "127.0.0.1:1", "x"); err == nil {
		t.Error("Expected error dialing closed port")
	}
}

// Package redis provides a ledger.Store shared through Redis, so several
// daemons can serve the same household.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/wattwise/pkg/ledger"
)

const (
	defaultPrefix = "wattwise"
	maxEvents     = 1000
	maxTxRetries  = 100
)

// Store keeps appliance hours in a hash, listing order in a sorted set and
// the event trail in a capped list.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore wraps client. An empty prefix defaults to "wattwise".
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return NewStore(client, prefix), nil
}

func (s *Store) hoursKey() string  { return s.prefix + ":appliances" }
func (s *Store) orderKey() string  { return s.prefix + ":appliances:order" }
func (s *Store) seqKey() string    { return s.prefix + ":appliances:seq" }
func (s *Store) eventsKey() string { return s.prefix + ":events" }

func (s *Store) List(ctx context.Context) ([]ledger.Entry, error) {
	names, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to ZRANGE %s: %w", s.orderKey(), err)
	}
	entries := []ledger.Entry{}
	if len(names) == 0 {
		return entries, nil
	}

	values, err := s.client.HMGet(ctx, s.hoursKey(), names...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to HMGET %s: %w", s.hoursKey(), err)
	}
	for i, val := range values {
		if val == nil {
			continue
		}
		str, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("HMGET returned non-string for %s", names[i])
		}
		hours, err := strconv.Atoi(str)
		if err != nil {
			return nil, fmt.Errorf("corrupt hours for %s: %w", names[i], err)
		}
		entries = append(entries, ledger.Entry{Name: names[i], Hours: hours})
	}
	return entries, nil
}

func (s *Store) Put(ctx context.Context, entry ledger.Entry, evt ledger.Event) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to INCR %s: %w", s.seqKey(), err)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hoursKey(), entry.Name, entry.Hours)
		// NX keeps the original position when a name is overwritten.
		pipe.ZAddNX(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: entry.Name})
		pipe.LPush(ctx, s.eventsKey(), data)
		pipe.LTrim(ctx, s.eventsKey(), 0, maxEvents-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store appliance %s: %w", entry.Name, err)
	}
	return nil
}

// Delete removes name from the hash and order set and records evt in one
// MULTI. The hash is watched so a concurrent Put between the existence
// check and EXEC aborts the transaction, which is then retried.
func (s *Store) Delete(ctx context.Context, name string, evt ledger.Event) (bool, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event: %w", err)
	}

	var found bool
	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.hoursKey(), name).Result()
		if err != nil {
			return err
		}
		found = exists
		if !exists {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.hoursKey(), name)
			pipe.ZRem(ctx, s.orderKey(), name)
			pipe.LPush(ctx, s.eventsKey(), data)
			pipe.LTrim(ctx, s.eventsKey(), 0, maxEvents-1)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, s.hoursKey())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete appliance %s: %w", name, err)
	}
	return found, nil
}

func (s *Store) RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error) {
	raw, err := s.client.LRange(ctx, s.eventsKey(), 0, int64(limit-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to LRANGE %s: %w", s.eventsKey(), err)
	}
	events := make([]ledger.Event, 0, len(raw))
	for _, item := range raw {
		var evt ledger.Event
		if err := json.Unmarshal([]byte(item), &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger event: %w", err)
		}
		events = append(events, evt)
	}
	return events, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

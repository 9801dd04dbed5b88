// Package redis implements storage slots on top of Redis string keys.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/persist"
)

const keyPrefix = "storefront:slot:"

var _ persist.Slots = (*Slots)(nil)

// Slots stores each slot under its own key. A zero TTL keeps keys forever.
type Slots struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSlots returns Slots backed by client.
func NewSlots(client redis.UniversalClient, ttl time.Duration) *Slots {
	return &Slots{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL, or a bare host:port address, and verifies
// the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// Read returns the slot document or persist.ErrSlotEmpty.
func (s *Slots) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persist.ErrSlotEmpty
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return data, nil
}

// Write overwrites the slot and refreshes its TTL.
func (s *Slots) Write(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, keyPrefix+name, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *Slots) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

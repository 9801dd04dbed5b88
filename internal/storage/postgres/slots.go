package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/persist"
)

const (
	readSlotSQL = `SELECT data FROM storage_slots WHERE name = $1`

	writeSlotSQL = `INSERT INTO storage_slots (name, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
)

var _ persist.Slots = (*Slots)(nil)

// Slots stores slot documents in the storage_slots table. Concurrent
// writers to one slot are last-write-wins.
type Slots struct {
	pool *pgxpool.Pool
}

// NewSlots returns Slots that use the given pool.
func NewSlots(pool *pgxpool.Pool) *Slots {
	return &Slots{pool: pool}
}

// Read returns the slot document or persist.ErrSlotEmpty.
func (s *Slots) Read(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, readSlotSQL, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persist.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %q: %w", name, err)
	}
	return data, nil
}

// Write overwrites the slot document.
func (s *Slots) Write(ctx context.Context, name string, data []byte) error {
	if _, err := s.pool.Exec(ctx, writeSlotSQL, name, data); err != nil {
		return fmt.Errorf("writing slot %q: %w", name, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Slots) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

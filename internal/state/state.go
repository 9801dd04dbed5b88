// Package state provides an explicit, persistent state container.
//
// A Container holds a single value of type T, exposes it through Get,
// notifies subscribers after each Update and writes the full value to a
// Repository before Update returns. Persistence is best-effort: a failed
// save is logged and reported to the OnSaveError observer, but the
// in-memory value stays authoritative.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// MalformedError marks persisted content that cannot be decoded. A
// Container discards such content and starts from empty.
type MalformedError struct {
	Err error
}

// Malformed wraps err as a MalformedError.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &MalformedError{Err: err}
}

func (e *MalformedError) Error() string {
	return "malformed state: " + e.Err.Error()
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Repository loads and saves the complete value of a Container.
type Repository[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
}

// Reducer computes the next value from the current one. It must not
// modify cur in place.
type Reducer[T any] func(cur T) T

// Option configures a Container.
type Option func(*options)

// DefaultSaveTimeout bounds a single save.
const DefaultSaveTimeout = 5 * time.Second

type options struct {
	lg          *zap.Logger
	onSaveError func(error)
	onLoadError func(error)
	saveTimeout time.Duration
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithSaveTimeout sets the deadline of each save.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) { o.saveTimeout = d }
}

// OnSaveError registers an observer called with every failed save.
func OnSaveError(fn func(error)) Option {
	return func(o *options) { o.onSaveError = fn }
}

// OnLoadError registers an observer called when the persisted value is
// malformed and the container starts from the empty value.
func OnLoadError(fn func(error)) Option {
	return func(o *options) { o.onLoadError = fn }
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Container is a concurrency-safe state holder with a single logical writer.
type Container[T any] struct {
	repo  Repository[T]
	clone func(T) T
	opts  options

	// dispatch serializes Update calls, including subscriber notification.
	dispatch sync.Mutex

	mu     sync.RWMutex
	value  T
	subs   []subscriber[T]
	nextID int
}

// New creates a Container, rehydrating it from repo. A MalformedError from
// the load starts the container from empty; any other load error is
// returned. clone must return a copy of a value that shares no mutable
// memory with its argument.
func New[T any](ctx context.Context, repo Repository[T], empty T, clone func(T) T, opts ...Option) (*Container[T], error) {
	c := &Container[T]{
		repo:  repo,
		clone: clone,
		value: empty,
	}
	for _, o := range opts {
		o(&c.opts)
	}
	if c.opts.lg == nil {
		c.opts.lg = zap.NewNop()
	}
	if c.opts.saveTimeout <= 0 {
		c.opts.saveTimeout = DefaultSaveTimeout
	}

	v, err := repo.Load(ctx)
	var malformed *MalformedError
	switch {
	case errors.As(err, &malformed):
		c.opts.lg.Warn("Discarding unreadable persisted state", zap.Error(err))
		if c.opts.onLoadError != nil {
			c.opts.onLoadError(err)
		}
	case err != nil:
		return nil, errors.Wrap(err, "load")
	default:
		c.value = v
	}
	return c, nil
}

// Get returns a copy of the current value.
func (c *Container[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value)
}

// Read calls fn with the current value under a read lock. fn must not
// retain or modify the value.
func (c *Container[T]) Read(fn func(T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.value)
}

// Subscribe registers fn to be called with a copy of the new value after
// every Update. Subscribers must not call Update. The returned function
// removes the subscription.
func (c *Container[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Update applies reduce to the current value, saves the result and notifies
// subscribers. The in-memory transition is atomic with respect to Get. The
// save outlives cancellation of ctx and is bounded by the save timeout.
func (c *Container[T]) Update(ctx context.Context, reduce Reducer[T]) T {
	c.dispatch.Lock()
	defer c.dispatch.Unlock()

	c.mu.Lock()
	next := reduce(c.value)
	c.value = next
	snapshot := c.clone(next)
	subs := append([]subscriber[T](nil), c.subs...)
	c.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.saveTimeout)
	err := c.repo.Save(saveCtx, snapshot)
	cancel()
	if err != nil {
		c.opts.lg.Warn("Failed to persist state", zap.Error(err))
		if c.opts.onSaveError != nil {
			c.opts.onSaveError(err)
		}
	}

	for _, s := range subs {
		s.fn(c.clone(next))
	}
	return snapshot
}

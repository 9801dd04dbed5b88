package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is a dependency that can be probed with a round trip.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks p.
func Ping(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// PingFunc adapts a ping function such as (*pgxpool.Pool).Ping.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Goroutines fails when more than limit goroutines are running.
func Goroutines(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit %d", n, limit)
		}
		return nil
	}
}

// Loaded fails until loaded reports true. It guards endpoints that need a
// warmed cache, such as the product catalog.
func Loaded(what string, loaded func() bool) CheckFunc {
	return func(context.Context) error {
		if !loaded() {
			return errors.Errorf("%s not loaded", what)
		}
		return nil
	}
}

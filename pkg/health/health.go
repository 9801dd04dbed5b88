// Package health serves liveness and readiness probes.
//
// Every probe is polled in the background and flips state only after a run
// of consecutive results, so a single slow ping does not take the server out
// of rotation.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the probed dependency is usable.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a probe reports to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// Option configures a probe.
type Option func(*probe)

// WithTimeout bounds a single check. Defaults to two seconds.
func WithTimeout(d time.Duration) Option {
	return func(p *probe) { p.timeout = d }
}

// WithThresholds sets how many consecutive failures mark the probe failing
// and how many consecutive successes restore it. Defaults to 3 and 1.
func WithThresholds(failures, successes int) Option {
	return func(p *probe) {
		p.failures = max(failures, 1)
		p.successes = max(successes, 1)
	}
}

type probe struct {
	name      string
	kind      Kind
	check     CheckFunc
	timeout   time.Duration
	failures  int
	successes int

	ok      atomic.Bool
	lastErr atomic.Pointer[string]

	// Only touched by the polling goroutine.
	failStreak int
	okStreak   int
}

// observe runs the check once. It reports whether the probe state changed.
func (p *probe) observe(ctx context.Context) (changed bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.check(ctx)
	if err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.okStreak = 0
		p.failStreak++
		if p.failStreak >= p.failures && p.ok.Load() {
			p.ok.Store(false)
			return true, err
		}
		return false, err
	}
	p.lastErr.Store(nil)
	p.failStreak = 0
	p.okStreak++
	if p.okStreak >= p.successes && !p.ok.Load() {
		p.ok.Store(true)
		return true, nil
	}
	return false, nil
}

func (p *probe) failure() (string, bool) {
	if p.ok.Load() {
		return "", false
	}
	if msg := p.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "check is failing", true
}

// Checker holds the probes of the server.
type Checker struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
}

// NewChecker returns a Checker that is not ready until SetReady(true).
func NewChecker() *Checker {
	return &Checker{}
}

// Add registers a probe. Probes start passing.
func (c *Checker) Add(kind Kind, name string, check CheckFunc, opts ...Option) {
	p := &probe{
		name:      name,
		kind:      kind,
		check:     check,
		timeout:   2 * time.Second,
		failures:  3,
		successes: 1,
	}
	for _, o := range opts {
		o(p)
	}
	p.ok.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, p)
}

// SetReady marks the server as accepting traffic. It is cleared on shutdown
// so that load balancers drain the instance first.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Ready reports whether the server is marked ready and every readiness probe
// passes.
func (c *Checker) Ready() bool {
	return c.ready.Load() && len(c.failures(Readiness)) == 0
}

// Run polls every probe at interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	c.mu.RLock()
	probes := append([]*probe(nil), c.probes...)
	c.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			poll(ctx, p, interval)
			return nil
		})
	}
	return g.Wait()
}

func poll(ctx context.Context, p *probe, interval time.Duration) {
	lg := zctx.From(ctx).With(
		zap.String("probe", p.name),
		zap.Stringer("kind", p.kind),
	)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		changed, err := p.observe(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case changed && err != nil:
			lg.Warn("Probe failing", zap.Error(err))
		case changed:
			lg.Info("Probe recovered")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Checker) failures(kind Kind) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := map[string]string{}
	for _, p := range c.probes {
		if p.kind != kind {
			continue
		}
		if msg, failing := p.failure(); failing {
			out[p.name] = msg
		}
	}
	return out
}

// Routes mounts GET /livez and GET /readyz.
func (c *Checker) Routes(r chi.Router) {
	r.Get("/livez", c.Live)
	r.Get("/readyz", c.Readyz)
}

// Live answers the liveness probe.
func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, c.failures(Liveness))
}

// Readyz answers the readiness probe.
func (c *Checker) Readyz(w http.ResponseWriter, _ *http.Request) {
	failures := c.failures(Readiness)
	if !c.ready.Load() {
		failures["server"] = "not ready"
	}
	writeStatus(w, failures)
}

// writeStatus renders {"status":"ok"} or {"status":"unhealthy","checks":{}}
// with names sorted.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	code := http.StatusOK
	if len(failures) == 0 {
		e.Str("ok")
	} else {
		code = http.StatusServiceUnavailable
		e.Str("unhealthy")
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

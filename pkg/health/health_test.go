package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func get(t *testing.T, c *Checker, path string) (int, statusBody) {
	t.Helper()
	r := chi.NewRouter()
	c.Routes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func passing(context.Context) error { return nil }

func lastProbe(c *Checker) *probe {
	return c.probes[len(c.probes)-1]
}

func TestLive(t *testing.T) {
	c := NewChecker()
	c.Add(Liveness, "goroutines", passing)

	code, body := get(t, c, "/livez")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestProbe_FailureThreshold(t *testing.T) {
	ctx := context.Background()
	c := NewChecker()
	c.Add(Liveness, "db", failing("connection refused"))
	p := lastProbe(c)

	for range 2 {
		changed, err := p.observe(ctx)
		require.Error(t, err)
		assert.False(t, changed)
	}
	code, _ := get(t, c, "/livez")
	assert.Equal(t, http.StatusOK, code)

	changed, _ := p.observe(ctx)
	assert.True(t, changed)

	code, body := get(t, c, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"db": "connection refused"}, body.Checks)
}

func TestProbe_Recovers(t *testing.T) {
	ctx := context.Background()
	var broken atomic.Bool
	broken.Store(true)
	c := NewChecker()
	c.Add(Readiness, "redis", func(context.Context) error {
		if broken.Load() {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(1, 2))
	p := lastProbe(c)

	changed, _ := p.observe(ctx)
	require.True(t, changed)

	broken.Store(false)
	changed, err := p.observe(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	changed, _ = p.observe(ctx)
	assert.True(t, changed)
	_, failing := p.failure()
	assert.False(t, failing)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checks     map[string]CheckFunc
		wantCode   int
		wantChecks map[string]string
	}{
		{
			name:     "ready without probes",
			ready:    true,
			wantCode: http.StatusOK,
		},
		{
			name:       "not marked ready",
			checks:     map[string]CheckFunc{"postgres": passing},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"server": "not ready"},
		},
		{
			name:  "one probe failing",
			ready: true,
			checks: map[string]CheckFunc{
				"postgres": passing,
				"slots":    failing("dial tcp: refused"),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantChecks: map[string]string{"slots": "dial tcp: refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Add(Readiness, name, check, WithThresholds(1, 1))
				_, _ = lastProbe(c).observe(context.Background())
			}
			c.SetReady(tt.ready)

			code, body := get(t, c, "/readyz")

			assert.Equal(t, tt.wantCode, code)
			if tt.wantChecks == nil {
				assert.Equal(t, "ok", body.Status)
				assert.True(t, c.Ready())
				return
			}
			assert.Equal(t, tt.wantChecks, body.Checks)
			assert.False(t, c.Ready())
		})
	}
}

func TestReadinessFailureDoesNotAffectLiveness(t *testing.T) {
	c := NewChecker()
	c.Add(Readiness, "postgres", failing("down"), WithThresholds(1, 1))
	_, _ = lastProbe(c).observe(context.Background())

	code, _ := get(t, c, "/livez")
	assert.Equal(t, http.StatusOK, code)
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	c := NewChecker()
	c.Add(Readiness, "slots", func(context.Context) error {
		calls.Add(1)
		return errors.New("down")
	}, WithThresholds(1, 1))
	c.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return !c.Ready() }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestWithTimeout(t *testing.T) {
	c := NewChecker()
	c.Add(Readiness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	_, err := lastProbe(c).observe(context.Background())

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChecks(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, Goroutines(1_000_000)(ctx))
	require.Error(t, Goroutines(0)(ctx))

	var loaded bool
	check := Loaded("catalog", func() bool { return loaded })
	require.EqualError(t, check(ctx), "catalog not loaded")
	loaded = true
	require.NoError(t, check(ctx))

	pinged := 0
	require.NoError(t, Ping(PingFunc(func(context.Context) error {
		pinged++
		return nil
	}))(ctx))
	assert.Equal(t, 1, pinged)
}

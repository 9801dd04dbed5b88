//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const (
	testAPIKey = "integration-key"
	testPepper = "integration-pepper"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

// stack holds the endpoints of the compose services.
type stack struct {
	databaseURL string
	redisURL    string
}

func startStack(t *testing.T) stack {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("testdata/docker-compose.yml")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dc.Down(context.Background(), tc.RemoveOrphans(true), tc.RemoveVolumes(true))
	})

	require.NoError(t, dc.
		WaitForService("postgres", wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)).
		WaitForService("redis", wait.ForLog("Ready to accept connections")).
		Up(ctx, tc.Wait(true)))

	endpoint := func(service, port string) string {
		ctr, err := dc.ServiceContainer(ctx, service)
		require.NoError(t, err)
		host, err := ctr.Host(ctx)
		require.NoError(t, err)
		mapped, err := ctr.MappedPort(ctx, nat.Port(port))
		require.NoError(t, err)
		return net.JoinHostPort(host, mapped.Port())
	}

	return stack{
		databaseURL: fmt.Sprintf("postgres://store:store@%s/store?sslmode=disable", endpoint("postgres", "5432/tcp")),
		redisURL:    "redis://" + endpoint("redis", "6379/tcp"),
	}
}

func seed(t *testing.T, databaseURL string) {
	t.Helper()
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, databaseURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	now := time.Now().UTC()
	products := postgres.NewProductRepository(pool)
	for _, p := range []product.Product{
		{ID: "chair", Name: "Chair", Slug: "chair", Price: decimal.RequireFromString("120.00"), CategoryID: "seating", Stock: 5, Trending: true, CreatedAt: now, UpdatedAt: now},
		{ID: "lamp", Name: "Lamp", Slug: "lamp", Price: decimal.RequireFromString("35.50"), CategoryID: "lighting", Stock: 1, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, products.Upsert(ctx, &p))
	}

	require.NoError(t, postgres.NewAPIKeyRepository(pool).Upsert(ctx, auth.APIKeyInfo{
		ID: "admin", KeyHash: auth.HashKey([]byte(testPepper), testAPIKey), Name: "admin", Scopes: []string{auth.ScopeAdmin},
	}))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// server runs the application until the test ends or stop is called.
type server struct {
	base string
	stop func()
}

func startServer(t *testing.T, cfg *Config) server {
	t.Helper()
	lg := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), lg))

	done := make(chan error, 1)
	go func() { done <- Run(ctx, lg, noopTelemetry{}, cfg) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(30 * time.Second):
				t.Error("server did not stop")
			}
		})
	}
	t.Cleanup(stop)

	base := "http://" + cfg.Addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Minute, 200*time.Millisecond)

	return server{base: base, stop: stop}
}

func testConfig(t *testing.T, s stack) *Config {
	return &Config{
		Addr:         freeAddr(t),
		DatabaseURL:  s.databaseURL,
		APIKeyPepper: testPepper,
		Slots:        SlotsConfig{Backend: SlotsRedis, RedisURL: s.redisURL, TTL: time.Hour},
		Session:      SessionConfig{Idle: time.Minute, EvictEvery: time.Minute, CookieMaxAge: time.Hour},
		Refresh:      time.Second,
		RateLimit:    RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:         CORSConfig{Origins: []string{"*"}},
		Graceful:     GracefulConfig{ShutdownTimeout: 5 * time.Second},
	}
}

func call(t *testing.T, method, url, session string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(httpmiddleware.SessionHeader, session)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestStorefront(t *testing.T) {
	s := startStack(t)
	seed(t, s.databaseURL)
	cfg := testConfig(t, s)
	const session = "0b6d9a4e-4f5c-4a53-9f5e-3c1b2a7d8e90"

	srv := startServer(t, cfg)

	t.Run("health", func(t *testing.T) {
		resp, body := call(t, http.MethodGet, srv.base+"/livez", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("catalog", func(t *testing.T) {
		resp, err := http.Get(srv.base + "/api/products?sort=price-low")
		require.NoError(t, err)
		defer resp.Body.Close()

		var products []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		require.Len(t, products, 2)
		assert.Equal(t, "lamp", products[0]["id"])
	})

	t.Run("cart", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, srv.base+"/api/cart/items", session,
			map[string]any{"product_id": "chair", "quantity": 2})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, session, resp.Header.Get(httpmiddleware.SessionHeader))
		assert.EqualValues(t, 2, body["total_items"])

		resp, _ = call(t, http.MethodPost, srv.base+"/api/cart/items", session,
			map[string]any{"product_id": "lamp", "quantity": 2})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("admin requires key", func(t *testing.T) {
		resp, _ := call(t, http.MethodGet, srv.base+"/api/admin/orders", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	srv.stop()

	// Carts live in Redis and survive a restart.
	srv = startServer(t, cfg)

	t.Run("cart survives restart", func(t *testing.T) {
		resp, body := call(t, http.MethodGet, srv.base+"/api/cart", session, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 2, body["total_items"])
		assert.EqualValues(t, 240, body["total_price"])
	})

	t.Run("checkout", func(t *testing.T) {
		resp, body := call(t, http.MethodPost, srv.base+"/api/checkout", session, map[string]any{
			"email": "shopper@example.com", "first_name": "Ada", "last_name": "Lovelace",
			"address": "1 Analytical St", "city": "London", "zip_code": "N1", "country": "UK",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.EqualValues(t, 240, body["total"])

		_, cart := call(t, http.MethodGet, srv.base+"/api/cart", session, nil)
		assert.EqualValues(t, 0, cart["total_items"])

		req, err := http.NewRequest(http.MethodGet, srv.base+"/api/admin/orders", nil)
		require.NoError(t, err)
		req.Header.Set("api_key", testAPIKey)
		orders, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer orders.Body.Close()
		assert.Equal(t, http.StatusOK, orders.StatusCode)
	})
}

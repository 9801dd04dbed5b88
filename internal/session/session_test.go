package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/persist"
)

// --- Mock implementations ---

type memorySlots struct {
	mu       sync.Mutex
	data     map[string][]byte
	readErr  error
	writeErr error
	reads    atomic.Int64
}

func newMemorySlots() *memorySlots {
	return &memorySlots{data: map[string][]byte{}}
}

func (m *memorySlots) Read(ctx context.Context, name string) ([]byte, error) {
	m.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	b, ok := m.data[name]
	if !ok {
		return nil, persist.ErrSlotEmpty
	}
	return b, nil
}

func (m *memorySlots) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[name] = data
	return nil
}

type countingCounter struct {
	noop.Int64Counter
	n atomic.Int64
}

func (c *countingCounter) Add(_ context.Context, incr int64, _ ...metric.AddOption) {
	c.n.Add(incr)
}

type countingMeter struct {
	noop.Meter
	mu       sync.Mutex
	counters map[string]*countingCounter
}

func (m *countingMeter) Int64Counter(name string, _ ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]*countingCounter{}
	}
	c := &countingCounter{}
	m.counters[name] = c
	return c, nil
}

func (m *countingMeter) count(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name].n.Load()
}

// --- Helpers ---

func newManager(t *testing.T, slots persist.Slots, idle time.Duration) (*Manager, *countingMeter) {
	t.Helper()
	meter := &countingMeter{}
	m, err := NewManager(slots, zap.NewNop(), meter, idle)
	require.NoError(t, err)
	return m, meter
}

func newManagerOnly(t *testing.T, slots persist.Slots) *Manager {
	t.Helper()
	m, _ := newManager(t, slots, 0)
	return m
}

func mustGet(t *testing.T, m *Manager, ctx context.Context, id string) *Session {
	t.Helper()
	s, err := m.Get(ctx, id)
	require.NoError(t, err)
	return s
}

func testProduct(id string) product.Product {
	return product.Product{ID: id, Name: id, Price: decimal.NewFromInt(10), Stock: 5}
}

// --- Tests ---

func TestManager_GetReturnsSameSession(t *testing.T) {
	m, _ := newManager(t, newMemorySlots(), 0)
	ctx := context.Background()

	a := mustGet(t, m, ctx, "a")
	require.NoError(t, a.Cart.AddOne(ctx, testProduct("p1")))

	assert.Same(t, a, mustGet(t, m, ctx, "a"))
	assert.NotSame(t, a, mustGet(t, m, ctx, "b"))
	assert.Equal(t, 0, mustGet(t, m, ctx, "b").Cart.TotalItems())
	assert.Equal(t, 2, m.Len())
}

func TestManager_ConcurrentGetOpensOnce(t *testing.T) {
	slots := newMemorySlots()
	m, _ := newManager(t, slots, 0)

	var wg sync.WaitGroup
	got := make([]*Session, 32)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = m.Get(context.Background(), "shared")
		}()
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, int64(2), slots.reads.Load(), "one read per store")
}

func TestManager_RehydratesFromSlots(t *testing.T) {
	slots := newMemorySlots()
	ctx := context.Background()

	m1, _ := newManager(t, slots, 0)
	s := mustGet(t, m1, ctx, "sess")
	require.NoError(t, s.Cart.AddItem(ctx, testProduct("p1"), 2))
	s.Wishlist.AddItem(ctx, testProduct("p2"))

	m2, _ := newManager(t, slots, 0)
	restored := mustGet(t, m2, ctx, "sess")

	assert.Equal(t, 2, restored.Cart.ItemQuantity("p1"))
	assert.True(t, restored.Wishlist.IsInWishlist("p2"))
	assert.Contains(t, slots.data, "cart-storage:sess")
	assert.Contains(t, slots.data, "wishlist-storage:sess")
}

func TestManager_CancelledRequestDoesNotDropCart(t *testing.T) {
	slots := newMemorySlots()
	ctx := context.Background()

	earlier, _ := newManager(t, slots, 0)
	require.NoError(t, mustGet(t, earlier, ctx, "abc").Cart.AddItem(ctx, testProduct("A"), 2))

	m, _ := newManager(t, slots, 0)
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	s := mustGet(t, m, cancelled, "abc")
	assert.Equal(t, 2, s.Cart.ItemQuantity("A"))

	require.NoError(t, s.Cart.AddItem(cancelled, testProduct("B"), 1))

	reloaded := mustGet(t, newManagerOnly(t, slots), ctx, "abc")
	assert.Equal(t, 2, reloaded.Cart.ItemQuantity("A"))
	assert.Equal(t, 1, reloaded.Cart.ItemQuantity("B"))
}

func TestManager_ReadFailureIsRetried(t *testing.T) {
	slots := newMemorySlots()
	ctx := context.Background()
	require.NoError(t, mustGet(t, newManagerOnly(t, slots), ctx, "abc").Cart.AddItem(ctx, testProduct("A"), 2))

	m, meter := newManager(t, slots, 0)
	slots.readErr = errors.New("connection refused")

	_, err := m.Get(ctx, "abc")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "abc", loadErr.SessionID)
	assert.Zero(t, m.Len())
	assert.Equal(t, int64(1), meter.count("storefront.slot.load_failures"))

	slots.readErr = nil
	s := mustGet(t, m, ctx, "abc")
	require.NoError(t, s.Cart.AddItem(ctx, testProduct("B"), 1))

	reloaded := mustGet(t, newManagerOnly(t, slots), ctx, "abc")
	assert.Equal(t, 2, reloaded.Cart.ItemQuantity("A"))
	assert.Equal(t, 1, reloaded.Cart.ItemQuantity("B"))
}

func TestManager_Metrics(t *testing.T) {
	slots := newMemorySlots()
	slots.data[persist.CartSlotName("s")] = []byte("garbage")
	m, meter := newManager(t, slots, 0)
	ctx := context.Background()

	s := mustGet(t, m, ctx, "s")
	assert.Equal(t, int64(1), meter.count("storefront.slot.load_failures"))

	require.NoError(t, s.Cart.AddOne(ctx, testProduct("p1")))
	s.Wishlist.ToggleItem(ctx, testProduct("p1"))
	assert.Equal(t, int64(2), meter.count("storefront.store.mutations"))
	assert.Zero(t, meter.count("storefront.slot.save_failures"))

	slots.writeErr = errors.New("unavailable")
	s.Cart.ClearCart(ctx)
	assert.Equal(t, int64(1), meter.count("storefront.slot.save_failures"))
	assert.Equal(t, 0, s.Cart.TotalItems())
}

func TestManager_Evict(t *testing.T) {
	m, _ := newManager(t, newMemorySlots(), time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	mustGet(t, m, ctx, "old")
	now = now.Add(45 * time.Second)
	mustGet(t, m, ctx, "recent")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 0, m.Len())
}

func TestManager_EvictDisabled(t *testing.T) {
	m, _ := newManager(t, newMemorySlots(), 0)
	mustGet(t, m, context.Background(), "a")
	m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	assert.Zero(t, m.Evict())
	assert.Equal(t, 1, m.Len())
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	m, _ := newManager(t, newMemorySlots(), time.Millisecond)
	mustGet(t, m, context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

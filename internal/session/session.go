// Package session keeps one cart store and one wishlist store per shopper
// session, backed by storage slots.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/wishlist"
	"github.com/xenking/storefront/internal/persist"
	"github.com/xenking/storefront/internal/state"
)

// Session holds the stores of one shopper.
type Session struct {
	ID       string
	Cart     *cart.Store
	Wishlist *wishlist.Store

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns the time of the last Manager.Get for this session.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// DefaultLoadTimeout bounds rehydrating the stores of one session.
const DefaultLoadTimeout = 5 * time.Second

// LoadError reports a session whose slots could not be read. Nothing is
// cached for the session, so the next Get reads the slots again.
type LoadError struct {
	SessionID string
	Err       error
}

func (e *LoadError) Error() string {
	return "load session " + e.SessionID + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

type entry struct {
	mu      sync.Mutex
	dropped bool
	session atomic.Pointer[Session]
}

// Manager creates sessions on first use and evicts idle ones. Evicting a
// session drops only its in-memory stores; the slots keep its state.
type Manager struct {
	slots       persist.Slots
	lg          *zap.Logger
	idle        time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mutations    metric.Int64Counter
	saveFailures metric.Int64Counter
	loadFailures metric.Int64Counter

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager returns a Manager persisting to slots. A zero idle disables
// eviction.
func NewManager(slots persist.Slots, lg *zap.Logger, meter metric.Meter, idle time.Duration) (*Manager, error) {
	m := &Manager{
		slots:       slots,
		lg:          lg,
		idle:        idle,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		sessions:    map[string]*entry{},
	}

	var err error
	if m.mutations, err = meter.Int64Counter("storefront.store.mutations",
		metric.WithDescription("Cart and wishlist mutations"),
	); err != nil {
		return nil, errors.Wrap(err, "mutations counter")
	}
	if m.saveFailures, err = meter.Int64Counter("storefront.slot.save_failures",
		metric.WithDescription("Failed storage slot writes"),
	); err != nil {
		return nil, errors.Wrap(err, "save failures counter")
	}
	if m.loadFailures, err = meter.Int64Counter("storefront.slot.load_failures",
		metric.WithDescription("Storage slots that could not be loaded"),
	); err != nil {
		return nil, errors.Wrap(err, "load failures counter")
	}
	return m, nil
}

// Get returns the session with the given id, rehydrating its stores from
// their slots on first use. The read is not cancelled with ctx. A failed
// read returns a *LoadError and leaves the session unloaded.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	for {
		m.mu.Lock()
		e, ok := m.sessions[id]
		if !ok {
			e = &entry{}
			m.sessions[id] = e
		}
		m.mu.Unlock()

		s := e.session.Load()
		if s == nil {
			var err error
			s, err = m.load(ctx, id, e)
			if errors.Is(err, errEntryDropped) {
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		s.touch(m.now())
		return s, nil
	}
}

var errEntryDropped = errors.New("session entry dropped")

func (m *Manager) load(ctx context.Context, id string, e *entry) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dropped {
		return nil, errEntryDropped
	}
	if s := e.session.Load(); s != nil {
		return s, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
	defer cancel()

	s, err := m.open(ctx, id)
	if err != nil {
		e.dropped = true
		m.mu.Lock()
		if m.sessions[id] == e {
			delete(m.sessions, id)
		}
		m.mu.Unlock()

		m.loadFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("store", "session")))
		m.lg.Warn("Failed to load session", zap.String("session", id), zap.Error(err))
		return nil, &LoadError{SessionID: id, Err: err}
	}
	e.session.Store(s)
	return s, nil
}

func (m *Manager) open(ctx context.Context, id string) (*Session, error) {
	lg := m.lg.With(zap.String("session", id))
	c, err := cart.NewStore(ctx, persist.NewCartRepository(m.slots, persist.CartSlotName(id)),
		m.storeOptions(lg, "cart")...)
	if err != nil {
		return nil, errors.Wrap(err, "cart")
	}
	w, err := wishlist.NewStore(ctx, persist.NewWishlistRepository(m.slots, persist.WishlistSlotName(id)),
		m.storeOptions(lg, "wishlist")...)
	if err != nil {
		return nil, errors.Wrap(err, "wishlist")
	}
	s := &Session{ID: id, Cart: c, Wishlist: w}

	cartAttrs := metric.WithAttributes(attribute.String("store", "cart"))
	s.Cart.Subscribe(func([]cart.Line) {
		m.mutations.Add(context.Background(), 1, cartAttrs)
	})
	wishlistAttrs := metric.WithAttributes(attribute.String("store", "wishlist"))
	s.Wishlist.Subscribe(func([]product.Product) {
		m.mutations.Add(context.Background(), 1, wishlistAttrs)
	})

	s.touch(m.now())
	lg.Debug("Session opened",
		zap.Int("cart_items", s.Cart.TotalItems()),
		zap.Int("wishlist_items", s.Wishlist.TotalItems()),
	)
	return s, nil
}

func (m *Manager) storeOptions(lg *zap.Logger, store string) []state.Option {
	attrs := metric.WithAttributes(attribute.String("store", store))
	lg = lg.With(zap.String("store", store))
	return []state.Option{
		state.WithLogger(lg),
		state.OnSaveError(func(error) {
			m.saveFailures.Add(context.Background(), 1, attrs)
		}),
		state.OnLoadError(func(error) {
			m.loadFailures.Add(context.Background(), 1, attrs)
		}),
	}
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict drops sessions not used within the idle period and returns how
// many were dropped.
func (m *Manager) Evict() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, e := range m.sessions {
		s := e.session.Load()
		if s == nil {
			continue
		}
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if m.idle <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				m.lg.Debug("Evicted idle sessions", zap.Int("count", n), zap.Int("remaining", m.Len()))
			}
		}
	}
}

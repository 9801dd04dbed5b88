package handler

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/persist"
)

type productRepo struct {
	mu       sync.Mutex
	products []product.Product
}

func (m *productRepo) List(context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.products), nil
}

func (m *productRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *productRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []product.Product
	for _, p := range m.products {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *productRepo) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *productRepo) Create(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, *p)
	return nil
}

func (m *productRepo) Update(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = *p
			return nil
		}
	}
	return product.ErrNotFound
}

func (m *productRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.products)
	m.products = slices.DeleteFunc(m.products, func(p product.Product) bool { return p.ID == id })
	if len(m.products) == n {
		return product.ErrNotFound
	}
	return nil
}

type slideRepo struct {
	mu     sync.Mutex
	slides []content.Slide
}

func (m *slideRepo) List(context.Context) ([]content.Slide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.slides), nil
}

func (m *slideRepo) Create(_ context.Context, s *content.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slides = append(m.slides, *s)
	return nil
}

func (m *slideRepo) Update(_ context.Context, s *content.Slide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slides {
		if m.slides[i].ID == s.ID {
			m.slides[i] = *s
			return nil
		}
	}
	return content.ErrSlideNotFound
}

func (m *slideRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.slides)
	m.slides = slices.DeleteFunc(m.slides, func(s content.Slide) bool { return s.ID == id })
	if len(m.slides) == n {
		return content.ErrSlideNotFound
	}
	return nil
}

func (m *slideRepo) SetDisplayOrder(_ context.Context, id string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.slides {
		if m.slides[i].ID == id {
			m.slides[i].DisplayOrder = order
			return nil
		}
	}
	return content.ErrSlideNotFound
}

type showcaseRepo struct {
	settings content.ShowcaseSettings
}

func (m *showcaseRepo) Get(context.Context) (*content.ShowcaseSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *showcaseRepo) Update(_ context.Context, s *content.ShowcaseSettings) error {
	m.settings = *s
	return nil
}

type bannerRepo struct {
	banners []content.Banner
}

func (m *bannerRepo) List(_ context.Context, activeOnly bool) ([]content.Banner, error) {
	var out []content.Banner
	for _, b := range m.banners {
		if b.Active || !activeOnly {
			out = append(out, b)
		}
	}
	return out, nil
}

type orderRepo struct {
	mu     sync.Mutex
	orders []order.Order
	// beforeCreate runs ahead of storing each order.
	beforeCreate func()
}

func (m *orderRepo) Create(_ context.Context, o *order.Order) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, *o)
	return nil
}

func (m *orderRepo) List(_ context.Context, status order.Status) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

type keyRepo struct {
	keys map[string]auth.APIKeyInfo
}

func (m *keyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.keys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &info, nil
}

type memorySlots struct {
	mu      sync.Mutex
	data    map[string][]byte
	readErr error
}

func (m *memorySlots) Read(_ context.Context, name string) ([]byte, error) {
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

func (m *memorySlots) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	return nil
}

package content

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/validation"
)

// ErrSettingsNotLoaded is returned by ShowcaseService.Update before the
// settings were fetched.
var ErrSettingsNotLoaded = errors.New("showcase settings not loaded")

// ShowcaseSettings selects the hero product and up to four supporting
// products displayed on the homepage.
type ShowcaseSettings struct {
	ID                string
	Title             string
	Subtitle          string
	Active            bool
	HeroProductID     string
	SupportProductIDs [4]string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ShowcasePatch is a partial settings update. SupportProductIDs, when set,
// replaces all four slots; empty strings clear a slot.
type ShowcasePatch struct {
	Title             *string    `json:"title" validate:"omitempty,max=200"`
	Subtitle          *string    `json:"subtitle"`
	Active            *bool      `json:"is_active"`
	HeroProductID     *string    `json:"hero_product_id"`
	SupportProductIDs *[4]string `json:"support_product_ids"`
}

// ShowcaseRepository persists the single showcase settings row.
type ShowcaseRepository interface {
	Get(ctx context.Context) (*ShowcaseSettings, error)
	Update(ctx context.Context, s *ShowcaseSettings) error
}

// ShowcaseService mirrors the showcase settings.
type ShowcaseService struct {
	repo ShowcaseRepository
	now  func() time.Time

	mu       sync.RWMutex
	settings *ShowcaseSettings
}

// NewShowcaseService returns a ShowcaseService with no settings loaded.
func NewShowcaseService(repo ShowcaseRepository) *ShowcaseService {
	return &ShowcaseService{repo: repo, now: time.Now}
}

// Fetch loads the settings from the repository.
func (s *ShowcaseService) Fetch(ctx context.Context) error {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "get showcase settings")
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Settings returns a copy of the loaded settings, or nil.
func (s *ShowcaseService) Settings() *ShowcaseSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil
	}
	cp := *s.settings
	return &cp
}

// Update applies patch remotely and then to the mirror.
func (s *ShowcaseService) Update(ctx context.Context, patch ShowcasePatch) (*ShowcaseSettings, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	next := s.Settings()
	if next == nil {
		return nil, ErrSettingsNotLoaded
	}
	set(&next.Title, patch.Title)
	set(&next.Subtitle, patch.Subtitle)
	set(&next.Active, patch.Active)
	set(&next.HeroProductID, patch.HeroProductID)
	set(&next.SupportProductIDs, patch.SupportProductIDs)
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, next); err != nil {
		return nil, errors.Wrap(err, "update showcase settings")
	}

	s.mu.Lock()
	cp := *next
	s.settings = &cp
	s.mu.Unlock()
	return next, nil
}

// HeroProduct returns the configured hero product from products.
func (s *ShowcaseService) HeroProduct(products []product.Product) (product.Product, bool) {
	settings := s.Settings()
	if settings == nil || settings.HeroProductID == "" {
		return product.Product{}, false
	}
	i := slices.IndexFunc(products, func(p product.Product) bool { return p.ID == settings.HeroProductID })
	if i < 0 {
		return product.Product{}, false
	}
	return products[i], true
}

// SupportProducts resolves the support slots against products in slot
// order, skipping empty slots, duplicates, the hero product and ids that
// are not in products.
func (s *ShowcaseService) SupportProducts(products []product.Product) []product.Product {
	settings := s.Settings()
	if settings == nil {
		return nil
	}

	var (
		out  []product.Product
		seen = map[string]bool{settings.HeroProductID: true}
	)
	for _, id := range settings.SupportProductIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if i := slices.IndexFunc(products, func(p product.Product) bool { return p.ID == id }); i >= 0 {
			out = append(out, products[i])
		}
	}
	return out
}

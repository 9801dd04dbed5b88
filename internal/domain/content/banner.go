package content

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// Banner is a promotional discount banner.
type Banner struct {
	ID                 string
	Title              string
	Subtitle           string
	DiscountPercentage *int
	DiscountText       string
	Description        string
	ImageURL           string
	BackgroundGradient string
	CTAText            string
	CTALink            string
	CountdownEnd       *time.Time
	Active             bool
	DisplayOrder       int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BannerRepository reads discount banners ordered by display order.
type BannerRepository interface {
	List(ctx context.Context, activeOnly bool) ([]Banner, error)
}

// BannerService mirrors the discount banners table.
type BannerService struct {
	repo BannerRepository

	mu      sync.RWMutex
	banners []Banner
}

// NewBannerService returns an empty BannerService.
func NewBannerService(repo BannerRepository) *BannerService {
	return &BannerService{repo: repo}
}

// FetchActive loads the active banners.
func (s *BannerService) FetchActive(ctx context.Context) error {
	return s.fetch(ctx, true)
}

// FetchAll loads every banner.
func (s *BannerService) FetchAll(ctx context.Context) error {
	return s.fetch(ctx, false)
}

func (s *BannerService) fetch(ctx context.Context, activeOnly bool) error {
	banners, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return errors.Wrap(err, "list banners")
	}
	s.mu.Lock()
	s.banners = banners
	s.mu.Unlock()
	return nil
}

// Banners returns the loaded banners.
func (s *BannerService) Banners() []Banner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.banners)
}

// Active returns the first loaded banner, if any.
func (s *BannerService) Active() (Banner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.banners) == 0 {
		return Banner{}, false
	}
	return s.banners[0], true
}

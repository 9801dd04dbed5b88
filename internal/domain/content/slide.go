// Package content manages the homepage content administered alongside the
// catalog: hero slides, the hero showcase and discount banners. Each service
// mirrors its remote table in memory and applies a write locally only after
// the repository accepted it.
package content

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/validation"
)

// Slide errors.
var (
	ErrSlideNotFound  = errors.New("hero slide not found")
	ErrDuplicateSlide = errors.New("slide listed twice")
)

// reorderConcurrency bounds the parallel display order updates of Reorder.
const reorderConcurrency = 4

// Slide is a hero carousel entry.
type Slide struct {
	ID           string
	Title        string
	Subtitle     string
	Description  string
	ImageURL     string
	CTAText      string
	CTALink      string
	ProductID    string
	DisplayOrder int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SlideInput holds the fields of a new slide.
type SlideInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url" validate:"required"`
	CTAText      string `json:"cta_text" validate:"required"`
	CTALink      string `json:"cta_link" validate:"required"`
	ProductID    string `json:"product_id"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
	Active       bool   `json:"is_active"`
}

// SlidePatch is a partial slide update; nil fields are left unchanged.
type SlidePatch struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Subtitle     *string `json:"subtitle"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"image_url" validate:"omitempty,min=1"`
	CTAText      *string `json:"cta_text" validate:"omitempty,min=1"`
	CTALink      *string `json:"cta_link" validate:"omitempty,min=1"`
	ProductID    *string `json:"product_id"`
	DisplayOrder *int    `json:"display_order" validate:"omitempty,gte=0"`
	Active       *bool   `json:"is_active"`
}

func (p SlidePatch) apply(s *Slide) {
	set(&s.Title, p.Title)
	set(&s.Subtitle, p.Subtitle)
	set(&s.Description, p.Description)
	set(&s.ImageURL, p.ImageURL)
	set(&s.CTAText, p.CTAText)
	set(&s.CTALink, p.CTALink)
	set(&s.ProductID, p.ProductID)
	set(&s.DisplayOrder, p.DisplayOrder)
	set(&s.Active, p.Active)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// SlideRepository persists hero slides.
type SlideRepository interface {
	// List returns every slide ordered by display order.
	List(ctx context.Context) ([]Slide, error)
	Create(ctx context.Context, s *Slide) error
	Update(ctx context.Context, s *Slide) error
	Delete(ctx context.Context, id string) error
	SetDisplayOrder(ctx context.Context, id string, order int) error
}

// SlideService mirrors the hero slides table.
type SlideService struct {
	repo SlideRepository
	now  func() time.Time

	mu     sync.RWMutex
	slides []Slide
}

// NewSlideService returns an empty SlideService. Call Fetch to load it.
func NewSlideService(repo SlideRepository) *SlideService {
	return &SlideService{repo: repo, now: time.Now}
}

// Fetch replaces the mirror with the repository contents.
func (s *SlideService) Fetch(ctx context.Context) error {
	slides, err := s.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list slides")
	}
	slices.SortStableFunc(slides, func(a, b Slide) int { return a.DisplayOrder - b.DisplayOrder })

	s.mu.Lock()
	s.slides = slides
	s.mu.Unlock()
	return nil
}

// All returns every mirrored slide in display order.
func (s *SlideService) All() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.slides)
}

// Active returns the active slides in display order.
func (s *SlideService) Active() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Slide
	for _, sl := range s.slides {
		if sl.Active {
			out = append(out, sl)
		}
	}
	return out
}

// Add creates a slide and appends it to the mirror.
func (s *SlideService) Add(ctx context.Context, in SlideInput) (*Slide, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sl := &Slide{
		ID:           uuid.New().String(),
		Title:        in.Title,
		Subtitle:     in.Subtitle,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		CTAText:      in.CTAText,
		CTALink:      in.CTALink,
		ProductID:    in.ProductID,
		DisplayOrder: in.DisplayOrder,
		Active:       in.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, sl); err != nil {
		return nil, errors.Wrap(err, "create slide")
	}

	s.mu.Lock()
	s.slides = append(s.slides, *sl)
	s.mu.Unlock()
	return sl, nil
}

// Update applies patch to the slide with the given id.
func (s *SlideService) Update(ctx context.Context, id string, patch SlidePatch) (*Slide, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	s.mu.RLock()
	i := s.index(id)
	var sl Slide
	if i >= 0 {
		sl = s.slides[i]
	}
	s.mu.RUnlock()
	if i < 0 {
		return nil, ErrSlideNotFound
	}

	patch.apply(&sl)
	sl.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &sl); err != nil {
		return nil, errors.Wrapf(err, "update slide %s", id)
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.slides[i] = sl
	}
	s.mu.Unlock()
	return &sl, nil
}

// Delete removes the slide remotely and from the mirror.
func (s *SlideService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete slide %s", id)
	}

	s.mu.Lock()
	s.slides = slices.DeleteFunc(s.slides, func(sl Slide) bool { return sl.ID == id })
	s.mu.Unlock()
	return nil
}

// Reorder assigns display orders 1..n following ids. Every id must be a
// known slide; slides not listed keep their order and move after the listed
// ones. Updates run concurrently and the mirror changes only when all of
// them succeed.
func (s *SlideService) Reorder(ctx context.Context, ids []string) error {
	s.mu.RLock()
	reordered := make([]Slide, 0, len(ids))
	for k, id := range ids {
		if slices.Contains(ids[:k], id) {
			s.mu.RUnlock()
			return errors.Wrap(ErrDuplicateSlide, id)
		}
		i := s.index(id)
		if i < 0 {
			s.mu.RUnlock()
			return errors.Wrap(ErrSlideNotFound, id)
		}
		reordered = append(reordered, s.slides[i])
	}
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reorderConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			return s.repo.SetDisplayOrder(gctx, id, i+1)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "reorder slides")
	}

	for i := range reordered {
		reordered[i].DisplayOrder = i + 1
	}
	s.mu.Lock()
	for _, sl := range s.slides {
		if !slices.Contains(ids, sl.ID) {
			reordered = append(reordered, sl)
		}
	}
	s.slides = reordered
	s.mu.Unlock()
	return nil
}

func (s *SlideService) index(id string) int {
	return slices.IndexFunc(s.slides, func(sl Slide) bool { return sl.ID == id })
}

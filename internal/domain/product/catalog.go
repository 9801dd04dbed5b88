package product

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/validation"
)

// Input holds the fields an administrator supplies for a new product.
type Input struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Slug            string          `json:"slug" validate:"omitempty,max=200"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Images          []string        `json:"images" validate:"dive,required"`
	CategoryID      string          `json:"category_id" validate:"required"`
	Specifications  json.RawMessage `json:"specifications"`
	Stock           int             `json:"stock" validate:"gte=0"`
	Featured        bool            `json:"featured"`
	Trending        bool            `json:"is_trending"`
	FeaturedHome    bool            `json:"featured_home"`
	HeroShowcase    bool            `json:"is_hero_showcase"`
	MetaTitle       string          `json:"meta_title"`
	MetaDescription string          `json:"meta_description"`
	Keywords        string          `json:"keywords"`
}

// Patch holds a partial product update; nil fields are left unchanged.
type Patch struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Slug            *string          `json:"slug" validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Images          []string         `json:"images" validate:"omitempty,dive,required"`
	CategoryID      *string          `json:"category_id" validate:"omitempty,min=1"`
	Specifications  json.RawMessage  `json:"specifications"`
	Stock           *int             `json:"stock" validate:"omitempty,gte=0"`
	Featured        *bool            `json:"featured"`
	Trending        *bool            `json:"is_trending"`
	FeaturedHome    *bool            `json:"featured_home"`
	HeroShowcase    *bool            `json:"is_hero_showcase"`
	MetaTitle       *string          `json:"meta_title"`
	MetaDescription *string          `json:"meta_description"`
	Keywords        *string          `json:"keywords"`
}

func (pt Patch) apply(p *Product) {
	setIf(&p.Name, pt.Name)
	setIf(&p.Slug, pt.Slug)
	setIf(&p.Description, pt.Description)
	setIf(&p.Price, pt.Price)
	setIf(&p.CategoryID, pt.CategoryID)
	setIf(&p.Stock, pt.Stock)
	setIf(&p.Featured, pt.Featured)
	setIf(&p.Trending, pt.Trending)
	setIf(&p.FeaturedHome, pt.FeaturedHome)
	setIf(&p.HeroShowcase, pt.HeroShowcase)
	setIf(&p.MetaTitle, pt.MetaTitle)
	setIf(&p.MetaDescription, pt.MetaDescription)
	setIf(&p.Keywords, pt.Keywords)
	if pt.Images != nil {
		p.Images = append([]string(nil), pt.Images...)
	}
	if pt.Specifications != nil {
		p.Specifications = append(json.RawMessage(nil), pt.Specifications...)
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Catalog mirrors the remote products table in memory. Reads are served
// from the mirror; writes go to the repository first and are reflected in
// the mirror only when they succeed.
type Catalog struct {
	repo  Repository
	now   func() time.Time
	newID func() string

	mu       sync.RWMutex
	products []Product
	loaded   bool
}

// NewCatalog creates an empty Catalog backed by repo. Call Fetch to load it.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Fetch replaces the mirror with the repository contents, newest first.
func (c *Catalog) Fetch(ctx context.Context) error {
	products, err := c.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	slices.SortStableFunc(products, func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) })

	c.mu.Lock()
	c.products = products
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Loaded reports whether at least one Fetch has succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// All returns a copy of every mirrored product.
func (c *Catalog) All() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = p.Clone()
	}
	return out
}

// Get returns the mirrored product with the given id.
func (c *Catalog) Get(id string) (Product, bool) {
	return c.find(func(p Product) bool { return p.ID == id })
}

// GetBySlug returns the mirrored product with the given slug.
func (c *Catalog) GetBySlug(slug string) (Product, bool) {
	return c.find(func(p Product) bool { return p.Slug == slug })
}

// Lookup returns a product by id, falling back to the repository when the
// mirror does not hold it yet.
func (c *Catalog) Lookup(ctx context.Context, id string) (Product, error) {
	if p, ok := c.Get(id); ok {
		return p, nil
	}
	p, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	return *p, nil
}

func (c *Catalog) find(match func(Product) bool) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.products {
		if match(p) {
			return p.Clone(), true
		}
	}
	return Product{}, false
}

// Add validates in, creates the product remotely and prepends it to the
// mirror.
func (c *Catalog) Add(ctx context.Context, in Input) (*Product, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("price", in.Price); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	p := &Product{
		ID:              c.newID(),
		Name:            in.Name,
		Slug:            in.Slug,
		Description:     in.Description,
		Price:           in.Price,
		Images:          append([]string(nil), in.Images...),
		CategoryID:      in.CategoryID,
		Specifications:  in.Specifications,
		Stock:           in.Stock,
		Featured:        in.Featured,
		Trending:        in.Trending,
		FeaturedHome:    in.FeaturedHome,
		HeroShowcase:    in.HeroShowcase,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Keywords:        in.Keywords,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}

	if err := c.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}

	c.mu.Lock()
	c.products = append([]Product{p.Clone()}, c.products...)
	c.mu.Unlock()
	return p, nil
}

// Update applies patch to the product with the given id.
func (c *Catalog) Update(ctx context.Context, id string, patch Patch) (*Product, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}
	if patch.Price != nil {
		if err := validation.NonNegative("price", *patch.Price); err != nil {
			return nil, err
		}
	}

	current, err := c.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(&current)
	current.UpdatedAt = c.now().UTC()

	if err := c.repo.Update(ctx, &current); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}

	c.mu.Lock()
	for i := range c.products {
		if c.products[i].ID == id {
			c.products[i] = current.Clone()
			break
		}
	}
	c.mu.Unlock()
	return &current, nil
}

// Delete removes the product remotely and from the mirror.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %s", id)
	}

	c.mu.Lock()
	c.products = slices.DeleteFunc(c.products, func(p Product) bool { return p.ID == id })
	c.mu.Unlock()
	return nil
}

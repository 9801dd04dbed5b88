package product

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Images      []string
	CategoryID  string
	// Specifications is a free-form JSON object stored as-is.
	Specifications  json.RawMessage
	Stock           int
	Featured        bool
	Trending        bool
	FeaturedHome    bool
	HeroShowcase    bool
	MetaTitle       string
	MetaDescription string
	Keywords        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy of p so that snapshots held by stores never
// share backing arrays with the caller.
func (p Product) Clone() Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.Specifications != nil {
		p.Specifications = append(json.RawMessage(nil), p.Specifications...)
	}
	return p
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

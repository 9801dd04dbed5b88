// Package wishlist implements the saved-products store: a deduplicated list
// of product snapshots persisted after every mutation.
package wishlist

import (
	"context"
	"slices"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/state"
)

// Repository persists the complete list of saved products.
type Repository = state.Repository[[]product.Product]

// Clone deep-copies items.
func Clone(items []product.Product) []product.Product {
	out := make([]product.Product, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}

// Action is a wishlist mutation understood by Store.Dispatch.
type Action interface {
	reduce(cur []product.Product) []product.Product
}

// AddItem appends Product unless an entry with the same id exists.
type AddItem struct{ Product product.Product }

func (a AddItem) reduce(cur []product.Product) []product.Product {
	if contains(cur, a.Product.ID) {
		return cur
	}
	return append(slices.Clone(cur), a.Product.Clone())
}

// RemoveItem deletes the entry for ProductID if present.
type RemoveItem struct{ ProductID string }

func (a RemoveItem) reduce(cur []product.Product) []product.Product {
	next := make([]product.Product, 0, len(cur))
	for _, p := range cur {
		if p.ID != a.ProductID {
			next = append(next, p)
		}
	}
	return next
}

// ToggleItem removes Product when saved and adds it otherwise, in a single
// transition.
type ToggleItem struct{ Product product.Product }

func (a ToggleItem) reduce(cur []product.Product) []product.Product {
	if contains(cur, a.Product.ID) {
		return RemoveItem{ProductID: a.Product.ID}.reduce(cur)
	}
	return AddItem(a).reduce(cur)
}

// ClearWishlist removes every entry.
type ClearWishlist struct{}

func (ClearWishlist) reduce([]product.Product) []product.Product { return []product.Product{} }

// Reduce applies a to items without touching any store.
func Reduce(items []product.Product, a Action) []product.Product {
	return a.reduce(items)
}

// Store is the wishlist state container.
type Store struct {
	c *state.Container[[]product.Product]
}

// NewStore creates a Store rehydrated from repo. Malformed persisted
// content yields an empty store; a failed read is returned.
func NewStore(ctx context.Context, repo Repository, opts ...state.Option) (*Store, error) {
	c, err := state.New(ctx, repo, []product.Product{}, Clone, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

// Dispatch applies a to the wishlist.
func (s *Store) Dispatch(ctx context.Context, a Action) {
	s.c.Update(ctx, func(cur []product.Product) []product.Product { return a.reduce(cur) })
}

// AddItem saves p; saving an already saved product is a no-op.
func (s *Store) AddItem(ctx context.Context, p product.Product) {
	s.Dispatch(ctx, AddItem{Product: p})
}

// RemoveItem deletes the entry for productID.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.Dispatch(ctx, RemoveItem{ProductID: productID})
}

// ToggleItem flips the membership of p and reports whether it is saved
// afterwards.
func (s *Store) ToggleItem(ctx context.Context, p product.Product) bool {
	next := s.c.Update(ctx, func(cur []product.Product) []product.Product {
		return ToggleItem{Product: p}.reduce(cur)
	})
	return contains(next, p.ID)
}

// ClearWishlist empties the wishlist.
func (s *Store) ClearWishlist(ctx context.Context) {
	s.Dispatch(ctx, ClearWishlist{})
}

// Items returns a snapshot of saved products in insertion order.
func (s *Store) Items() []product.Product {
	return s.c.Get()
}

// IsInWishlist reports whether productID is saved.
func (s *Store) IsInWishlist(productID string) bool {
	var ok bool
	s.c.Read(func(items []product.Product) {
		ok = contains(items, productID)
	})
	return ok
}

// TotalItems returns the number of saved products.
func (s *Store) TotalItems() int {
	var n int
	s.c.Read(func(items []product.Product) {
		n = len(items)
	})
	return n
}

// Subscribe registers fn to receive the items after each mutation.
func (s *Store) Subscribe(fn func([]product.Product)) (unsubscribe func()) {
	return s.c.Subscribe(fn)
}

func contains(items []product.Product, id string) bool {
	return slices.ContainsFunc(items, func(p product.Product) bool { return p.ID == id })
}

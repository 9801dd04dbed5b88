// Package persist connects cart and wishlist stores to durable storage
// slots: single named entries that hold a store's whole collection as JSON
// and are overwritten on every mutation.
package persist

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/wishlist"
	"github.com/xenking/storefront/internal/state"
)

// ErrSlotEmpty is returned by Slots.Read when nothing was stored under the
// requested name.
var ErrSlotEmpty = errors.New("slot is empty")

// Slots is a named key-value store of slot documents.
type Slots interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// Slot name prefixes, one per store kind.
const (
	CartSlotPrefix     = "cart-storage"
	WishlistSlotPrefix = "wishlist-storage"
)

// CartSlotName returns the slot holding the cart of session.
func CartSlotName(session string) string {
	return CartSlotPrefix + ":" + session
}

// WishlistSlotName returns the slot holding the wishlist of session.
func WishlistSlotName(session string) string {
	return WishlistSlotPrefix + ":" + session
}

var (
	_ cart.Repository     = (*CartRepository)(nil)
	_ wishlist.Repository = (*WishlistRepository)(nil)
)

// CartRepository stores cart lines in a single slot.
type CartRepository struct {
	slots Slots
	name  string
}

// NewCartRepository returns a CartRepository bound to the named slot.
func NewCartRepository(slots Slots, name string) *CartRepository {
	return &CartRepository{slots: slots, name: name}
}

// Load reads and decodes the slot. An empty slot yields no lines and
// undecodable content a state.MalformedError.
func (r *CartRepository) Load(ctx context.Context) ([]cart.Line, error) {
	data, err := r.slots.Read(ctx, r.name)
	if errors.Is(err, ErrSlotEmpty) {
		return []cart.Line{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read slot %s", r.name)
	}
	lines, err := DecodeCart(data)
	if err != nil {
		return nil, state.Malformed(err)
	}
	return lines, nil
}

// Save overwrites the slot with lines.
func (r *CartRepository) Save(ctx context.Context, lines []cart.Line) error {
	if err := r.slots.Write(ctx, r.name, EncodeCart(lines)); err != nil {
		return errors.Wrapf(err, "write slot %s", r.name)
	}
	return nil
}

// WishlistRepository stores saved products in a single slot.
type WishlistRepository struct {
	slots Slots
	name  string
}

// NewWishlistRepository returns a WishlistRepository bound to the named slot.
func NewWishlistRepository(slots Slots, name string) *WishlistRepository {
	return &WishlistRepository{slots: slots, name: name}
}

// Load reads and decodes the slot. An empty slot yields no items and
// undecodable content a state.MalformedError.
func (r *WishlistRepository) Load(ctx context.Context) ([]product.Product, error) {
	data, err := r.slots.Read(ctx, r.name)
	if errors.Is(err, ErrSlotEmpty) {
		return []product.Product{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read slot %s", r.name)
	}
	items, err := DecodeWishlist(data)
	if err != nil {
		return nil, state.Malformed(err)
	}
	return items, nil
}

// Save overwrites the slot with items.
func (r *WishlistRepository) Save(ctx context.Context, items []product.Product) error {
	if err := r.slots.Write(ctx, r.name, EncodeWishlist(items)); err != nil {
		return errors.Wrapf(err, "write slot %s", r.name)
	}
	return nil
}

// Package cart implements the shopping cart store: an ordered collection of
// product snapshots with quantities, persisted after every mutation.
package cart

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/state"
)

// ErrInvalidQuantity is returned when an item is added with a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// InsufficientStockError reports a requested quantity above the product
// snapshot's stock. The store itself never returns it; callers that enforce
// stock limits do.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d of product %s in stock, requested %d", e.Available, e.ProductID, e.Requested)
}

// Line is one product-and-quantity pairing. Quantity is at least 1 for
// every line held by a Store.
type Line struct {
	Product  product.Product
	Quantity int
}

// Subtotal returns price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository persists the complete list of lines.
type Repository = state.Repository[[]Line]

// Clone deep-copies lines.
func Clone(lines []Line) []Line {
	if lines == nil {
		return []Line{}
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{Product: l.Product.Clone(), Quantity: l.Quantity}
	}
	return out
}

// Store is the cart state container.
type Store struct {
	c *state.Container[[]Line]
}

// NewStore creates a Store rehydrated from repo. Malformed persisted
// content yields an empty store; a failed read is returned.
func NewStore(ctx context.Context, repo Repository, opts ...state.Option) (*Store, error) {
	c, err := state.New(ctx, repo, []Line{}, Clone, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

// Dispatch applies a to the cart. It fails only for invalid actions; a
// failed persistence write is not reported here.
func (s *Store) Dispatch(ctx context.Context, a Action) error {
	if err := a.validate(); err != nil {
		return err
	}
	s.c.Update(ctx, func(cur []Line) []Line { return a.reduce(cur) })
	return nil
}

// AddItem adds quantity units of p, merging with an existing line.
func (s *Store) AddItem(ctx context.Context, p product.Product, quantity int) error {
	return s.Dispatch(ctx, AddItem{Product: p, Quantity: quantity})
}

// AddOne adds a single unit of p.
func (s *Store) AddOne(ctx context.Context, p product.Product) error {
	return s.AddItem(ctx, p, 1)
}

// UpdateQuantity sets the quantity of a line; non-positive values remove it.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	_ = s.Dispatch(ctx, UpdateQuantity{ProductID: productID, Quantity: quantity})
}

// RemoveItem deletes the line for productID if present.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	_ = s.Dispatch(ctx, RemoveItem{ProductID: productID})
}

// RemoveOrdered takes the quantities of ordered out of the cart.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []Line) {
	_ = s.Dispatch(ctx, RemoveOrdered{Lines: ordered})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) {
	_ = s.Dispatch(ctx, ClearCart{})
}

// Lines returns a snapshot of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	return s.c.Get()
}

// Subscribe registers fn to receive the lines after each mutation.
func (s *Store) Subscribe(fn func([]Line)) (unsubscribe func()) {
	return s.c.Subscribe(fn)
}

// TotalPrice returns the sum of price times quantity over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	s.c.Read(func(lines []Line) {
		total = TotalPrice(lines)
	})
	return total
}

// TotalItems returns the sum of quantities, not the number of lines.
func (s *Store) TotalItems() int {
	var n int
	s.c.Read(func(lines []Line) {
		n = TotalItems(lines)
	})
	return n
}

// ItemQuantity returns the quantity held for productID, or 0.
func (s *Store) ItemQuantity(productID string) int {
	var q int
	s.c.Read(func(lines []Line) {
		if i := indexOf(lines, productID); i >= 0 {
			q = lines[i].Quantity
		}
	})
	return q
}

// TotalPrice sums the subtotals of lines.
func TotalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// TotalItems sums the quantities of lines.
func TotalItems(lines []Line) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func indexOf(lines []Line, productID string) int {
	return slices.IndexFunc(lines, func(l Line) bool { return l.Product.ID == productID })
}

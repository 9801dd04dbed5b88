package cart

import (
	"slices"

	"github.com/xenking/storefront/internal/domain/product"
)

// Action is a cart mutation understood by Store.Dispatch.
type Action interface {
	validate() error
	reduce(cur []Line) []Line
}

// AddItem adds Quantity units of Product. The quantity is not clamped to
// the product's stock.
type AddItem struct {
	Product  product.Product
	Quantity int
}

func (a AddItem) validate() error {
	if a.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (a AddItem) reduce(cur []Line) []Line {
	next := slices.Clone(cur)
	if i := indexOf(next, a.Product.ID); i >= 0 {
		next[i].Quantity += a.Quantity
		return next
	}
	return append(next, Line{Product: a.Product.Clone(), Quantity: a.Quantity})
}

// UpdateQuantity sets the quantity of an existing line. A non-positive
// quantity removes the line; an unknown product id is ignored.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

func (UpdateQuantity) validate() error { return nil }

func (a UpdateQuantity) reduce(cur []Line) []Line {
	i := indexOf(cur, a.ProductID)
	if i < 0 {
		return cur
	}
	if a.Quantity <= 0 {
		return RemoveItem{ProductID: a.ProductID}.reduce(cur)
	}
	next := slices.Clone(cur)
	next[i].Quantity = a.Quantity
	return next
}

// RemoveItem deletes the line for ProductID if present.
type RemoveItem struct {
	ProductID string
}

func (RemoveItem) validate() error { return nil }

func (a RemoveItem) reduce(cur []Line) []Line {
	next := make([]Line, 0, len(cur))
	for _, l := range cur {
		if l.Product.ID != a.ProductID {
			next = append(next, l)
		}
	}
	return next
}

// RemoveOrdered takes the quantities of Lines out of the cart, dropping
// lines that reach zero. Units added after Lines was read stay in the cart.
type RemoveOrdered struct {
	Lines []Line
}

func (RemoveOrdered) validate() error { return nil }

func (a RemoveOrdered) reduce(cur []Line) []Line {
	ordered := make(map[string]int, len(a.Lines))
	for _, l := range a.Lines {
		ordered[l.Product.ID] += l.Quantity
	}
	next := make([]Line, 0, len(cur))
	for _, l := range cur {
		l.Quantity -= ordered[l.Product.ID]
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}
	return next
}

// ClearCart removes every line.
type ClearCart struct{}

func (ClearCart) validate() error { return nil }

func (ClearCart) reduce([]Line) []Line { return []Line{} }

// Reduce applies a to lines without touching any store. It is the pure
// transition function behind Store.Dispatch.
func Reduce(lines []Line, a Action) ([]Line, error) {
	if err := a.validate(); err != nil {
		return lines, err
	}
	return a.reduce(lines), nil
}

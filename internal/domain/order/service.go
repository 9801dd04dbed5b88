package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/validation"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart     = fmt.Errorf("cart is empty")
	ErrInvalidStatus = fmt.Errorf("unknown order status")
)

// ProductNotFoundError indicates a cart line refers to a product that no
// longer exists.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	SessionID string
	Customer  Customer
	Lines     []cart.Line
}

// Service encapsulates order placement business logic.
type Service struct {
	products product.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
		now:      time.Now,
	}
}

// Checkout validates the customer, re-prices every cart line against the
// current catalog in a single batch, checks stock and persists a pending
// order. Clearing the cart is left to the caller.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if err := validation.Struct(req.Customer); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.Product.ID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]OrderItem, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		p, ok := byID[l.Product.ID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.Product.ID}
		}
		if l.Quantity > p.Stock {
			return nil, &cart.InsufficientStockError{
				ProductID: p.ID,
				Requested: l.Quantity,
				Available: p.Stock,
			}
		}
		items[i] = OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  l.Quantity,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	now := s.now().UTC()
	o := &Order{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		Customer:  req.Customer,
		Items:     items,
		Total:     total.Round(2),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orders.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/validation"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	// Quantity defaults to 1.
	Quantity *int `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// GetCart handles GET /api/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.cartJSON(s.Cart.Lines()))
}

// AddCartItem handles POST /api/cart/items. The product is resolved from
// the catalog and the resulting line quantity may not exceed its stock.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx := r.Context()
	p, err := h.Catalog.Lookup(ctx, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Cart
	if want := store.ItemQuantity(p.ID) + qty; qty > 0 && want > p.Stock {
		writeError(w, r, &cart.InsufficientStockError{ProductID: p.ID, Requested: want, Available: p.Stock})
		return
	}
	if err := store.AddItem(ctx, p, qty); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartJSON(store.Lines()))
}

// UpdateCartItem handles PATCH /api/cart/items/{id}. A quantity of zero or
// less removes the line; ids not in the cart are ignored.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Cart
	for _, l := range store.Lines() {
		if l.Product.ID == id && *req.Quantity > l.Product.Stock {
			writeError(w, r, &cart.InsufficientStockError{ProductID: id, Requested: *req.Quantity, Available: l.Product.Stock})
			return
		}
	}
	store.UpdateQuantity(r.Context(), id, *req.Quantity)
	writeJSON(w, http.StatusOK, h.cartJSON(store.Lines()))
}

// RemoveCartItem handles DELETE /api/cart/items/{id}.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Cart
	store.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.cartJSON(store.Lines()))
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Cart
	store.ClearCart(r.Context())
	writeJSON(w, http.StatusOK, h.cartJSON(store.Lines()))
}

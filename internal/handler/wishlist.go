package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/validation"
)

type addWishlistItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type toggleWishlistResponse struct {
	InWishlist bool         `json:"in_wishlist"`
	Wishlist   wishlistJSON `json:"wishlist"`
}

// GetWishlist handles GET /api/wishlist.
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.wishlistJSON(s.Wishlist.Items()))
}

// AddWishlistItem handles POST /api/wishlist/items.
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req addWishlistItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
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
	store := s.Wishlist
	store.AddItem(ctx, p)
	writeJSON(w, http.StatusOK, h.wishlistJSON(store.Items()))
}

// ToggleWishlistItem handles POST /api/wishlist/items/{id}/toggle. A saved
// product is removed even when it has left the catalog since.
func (h *Handler) ToggleWishlistItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Wishlist

	saved := store.Items()
	var p product.Product
	if i := slices.IndexFunc(saved, func(p product.Product) bool { return p.ID == id }); i >= 0 {
		p = saved[i]
	} else {
		var err error
		if p, err = h.Catalog.Lookup(ctx, id); err != nil {
			writeError(w, r, err)
			return
		}
	}

	in := store.ToggleItem(ctx, p)
	writeJSON(w, http.StatusOK, toggleWishlistResponse{
		InWishlist: in,
		Wishlist:   h.wishlistJSON(store.Items()),
	})
}

// RemoveWishlistItem handles DELETE /api/wishlist/items/{id}.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Wishlist
	store.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.wishlistJSON(store.Items()))
}

// ClearWishlist handles DELETE /api/wishlist.
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	store := s.Wishlist
	store.ClearWishlist(r.Context())
	writeJSON(w, http.StatusOK, h.wishlistJSON(store.Items()))
}
